package cli

import (
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the menu needs to operate.
// The real App type satisfies this interface; tests can provide a stub.
type execIface interface {
	List(ctx context.Context) error
	Add(ctx context.Context) error
	Show(ctx context.Context) error
	Edit(ctx context.Context) error
	Delete(ctx context.Context) error
	Find(ctx context.Context) error
	Generate(ctx context.Context) error
	Sync(ctx context.Context) error
	History(ctx context.Context) error
	Save(ctx context.Context) error
}

const menuHelp = `  L  list entries         A  add entry
  S  show entry           E  edit entry
  D  delete entry         F  find entries
  G  generate password    Y  sync with peers
  H  sync history         W  save vault
  Q  quit`

// menuLoop reads single-letter commands until EOF or Q. Handler errors are
// printed and the loop continues; the vault stays open.
func (a *App) menuLoop(ctx context.Context) {
	runMenu(ctx, a, a.readCommand)
}

func runMenu(ctx context.Context, e execIface, next func() (string, bool)) {
	printlnFn(menuHelp)
	for {
		cmd, ok := next()
		if !ok {
			return
		}

		var err error
		switch strings.ToUpper(cmd) {
		case "":
			continue
		case "?", "HELP":
			printlnFn(menuHelp)
		case "L":
			err = e.List(ctx)
		case "A":
			err = e.Add(ctx)
		case "S":
			err = e.Show(ctx)
		case "E":
			err = e.Edit(ctx)
		case "D":
			err = e.Delete(ctx)
		case "F":
			err = e.Find(ctx)
		case "G":
			err = e.Generate(ctx)
		case "Y":
			err = e.Sync(ctx)
		case "H":
			err = e.History(ctx)
		case "W":
			err = e.Save(ctx)
		case "Q", "QUIT", "EXIT":
			return
		default:
			printlnFn("Unknown command. Type ? for help.")
		}
		if err != nil {
			printlnFn(errorStyle.Render("Error: " + err.Error()))
		}
	}
}

func (a *App) readCommand() (string, bool) {
	fmt.Fprint(a.out, dimStyle.Render("pdub> "))
	line, err := a.reader.ReadString('\n')
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(line), true
}
