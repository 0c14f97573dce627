package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/atotto/clipboard"
	"github.com/localpdub/localpdub/internal/discovery"
	"github.com/localpdub/localpdub/internal/passgen"
	"github.com/localpdub/localpdub/internal/store"
)

// writeToClipboard is a test seam; clipboard access is unavailable on CI.
var writeToClipboard = clipboard.WriteAll

// List prints all entries in insertion order.
func (a *App) List(ctx context.Context) error {
	st, err := a.session.Store()
	if err != nil {
		return err
	}
	records, err := st.List()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		printlnFn(dimStyle.Render("The vault is empty."))
		return nil
	}
	for i, r := range records {
		printlnFn(fmt.Sprintf("%3d. %s  %s", i+1,
			fieldStyle.Render(r.Title), dimStyle.Render(r.Username)))
	}
	return nil
}

// Add prompts for the fields of a new entry.
func (a *App) Add(ctx context.Context) error {
	st, err := a.session.Store()
	if err != nil {
		return err
	}

	r := &store.Record{}
	if r.Title, err = GetSimpleText(a.reader, "Title", a.out); err != nil {
		return err
	}
	if r.Username, err = GetSimpleText(a.reader, "Username", a.out); err != nil {
		return err
	}
	if r.Password, err = GetPassword(a.out, "Password (empty to generate)"); err != nil {
		return err
	}
	if r.Password == "" {
		if r.Password, err = passgen.Generate(passgen.DefaultOptions()); err != nil {
			return err
		}
		printlnFn(successStyle.Render("Generated a password (strength: " +
			passgen.Score(r.Password).String() + ")."))
	}
	if r.URL, err = GetSimpleText(a.reader, "URL", a.out); err != nil {
		return err
	}
	if r.Notes, err = GetSimpleText(a.reader, "Notes", a.out); err != nil {
		return err
	}

	id, err := st.Add(r)
	if err != nil {
		return err
	}
	if err := a.session.Save(); err != nil {
		return err
	}
	printlnFn(successStyle.Render("Added entry " + id))
	return nil
}

// Show prints one entry and offers to copy the password to the clipboard.
func (a *App) Show(ctx context.Context) error {
	r, err := a.pickRecord()
	if err != nil {
		return err
	}

	printlnFn(titleStyle.Render(r.Title))
	printlnFn(fieldStyle.Render("username: ") + r.Username)
	printlnFn(fieldStyle.Render("url:      ") + r.URL)
	printlnFn(fieldStyle.Render("email:    ") + r.Email)
	printlnFn(fieldStyle.Render("notes:    ") + r.Notes)
	for k, v := range r.CustomFields {
		printlnFn(fieldStyle.Render(k+": ") + v)
	}
	printlnFn(dimStyle.Render("modified " + time.Unix(r.Modified, 0).Format(time.RFC3339)))

	ok, err := GetConfirm(a.reader, "Copy password to clipboard?", a.out)
	if err != nil {
		return err
	}
	if ok {
		if err := writeToClipboard(r.Password); err != nil {
			return err
		}
		printlnFn(successStyle.Render("Password copied."))
	}
	return nil
}

// Edit rewrites the fields of one entry; empty input keeps the old value.
func (a *App) Edit(ctx context.Context) error {
	st, err := a.session.Store()
	if err != nil {
		return err
	}
	r, err := a.pickRecord()
	if err != nil {
		return err
	}

	edit := func(prompt, current string) (string, error) {
		v, err := GetSimpleText(a.reader, fmt.Sprintf("%s [%s]", prompt, current), a.out)
		if err != nil {
			return "", err
		}
		if v == "" {
			return current, nil
		}
		return v, nil
	}

	if r.Title, err = edit("Title", r.Title); err != nil {
		return err
	}
	if r.Username, err = edit("Username", r.Username); err != nil {
		return err
	}
	password, err := GetPassword(a.out, "Password (empty keeps current)")
	if err != nil {
		return err
	}
	if password != "" {
		r.Password = password
	}
	if r.URL, err = edit("URL", r.URL); err != nil {
		return err
	}
	if r.Notes, err = edit("Notes", r.Notes); err != nil {
		return err
	}

	ok, err := st.Update(r.ID, r)
	if err != nil {
		return err
	}
	if !ok {
		printlnFn(errorStyle.Render("Entry vanished while editing."))
		return nil
	}
	if err := a.session.Save(); err != nil {
		return err
	}
	printlnFn(successStyle.Render("Entry updated."))
	return nil
}

// Delete removes one entry after confirmation.
func (a *App) Delete(ctx context.Context) error {
	st, err := a.session.Store()
	if err != nil {
		return err
	}
	r, err := a.pickRecord()
	if err != nil {
		return err
	}

	ok, err := GetConfirm(a.reader, "Delete \""+r.Title+"\"?", a.out)
	if err != nil || !ok {
		return err
	}
	if _, err := st.Delete(r.ID); err != nil {
		return err
	}
	if err := a.session.Save(); err != nil {
		return err
	}
	printlnFn(successStyle.Render("Entry deleted."))
	return nil
}

// Find searches titles, usernames and urls.
func (a *App) Find(ctx context.Context) error {
	st, err := a.session.Store()
	if err != nil {
		return err
	}
	query, err := GetSimpleText(a.reader, "Search for", a.out)
	if err != nil {
		return err
	}
	hits, err := st.Search(query)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		printlnFn(dimStyle.Render("No matches."))
		return nil
	}
	for _, r := range hits {
		printlnFn(fieldStyle.Render(r.Title) + "  " + dimStyle.Render(r.Username))
	}
	return nil
}

// Generate produces a password without storing anything.
func (a *App) Generate(ctx context.Context) error {
	lengthStr, err := GetSimpleText(a.reader, "Length [20]", a.out)
	if err != nil {
		return err
	}
	opts := passgen.DefaultOptions()
	if lengthStr != "" {
		if opts.Length, err = strconv.Atoi(lengthStr); err != nil {
			return err
		}
	}
	password, err := passgen.Generate(opts)
	if err != nil {
		return err
	}
	printlnFn(password)
	printlnFn(dimStyle.Render("strength: " + passgen.Score(password).String()))

	ok, err := GetConfirm(a.reader, "Copy to clipboard?", a.out)
	if err != nil {
		return err
	}
	if ok {
		return writeToClipboard(password)
	}
	return nil
}

// Sync discovers peers on the LAN and syncs with all of them.
func (a *App) Sync(ctx context.Context) error {
	passphrase := ""
	if a.cfg.Auth == "passphrase" {
		var err error
		if passphrase, err = GetPassword(a.out, "Sync passphrase"); err != nil {
			return err
		}
	}
	opts, err := a.syncOptions(passphrase)
	if err != nil {
		return err
	}

	// Make this device reachable before announcing it.
	if err := a.session.StartResponder(opts); err != nil {
		return err
	}

	disc := discovery.NewSession(discovery.Config{
		DeviceID:   a.deviceID,
		DeviceName: a.cfg.DeviceName,
		VaultID:    a.cfg.VaultPath,
		Timeout:    a.cfg.DiscoveryTimeout,
		Logger:     a.log,
	})
	if err := disc.Start(); err != nil {
		return err
	}
	defer disc.Stop()

	printlnFn(dimStyle.Render("Listening for peers for 10 seconds..."))
	select {
	case <-time.After(10 * time.Second):
	case <-ctx.Done():
		return ctx.Err()
	}

	peers := disc.Peers()
	if len(peers) == 0 {
		printlnFn(dimStyle.Render("No peers found."))
		return nil
	}
	for _, p := range peers {
		printlnFn(fmt.Sprintf("  %s (%s:%d)", fieldStyle.Render(p.Name), p.IP, p.Port))
	}

	result, err := a.session.Sync(ctx, peers, opts)
	if err != nil {
		return err
	}

	printlnFn(fmt.Sprintf("sent %d, received %d, conflicts resolved %d",
		result.EntriesSent, result.EntriesReceived, result.ConflictsResolved))
	for _, e := range result.Errors {
		printlnFn(errorStyle.Render("  " + e))
	}
	for _, c := range result.Conflicts {
		printlnFn(errorStyle.Render("  unresolved conflict on \"" + c.Local.Title + "\""))
	}
	return nil
}

// History prints recent journaled sync runs.
func (a *App) History(ctx context.Context) error {
	if a.journal == nil {
		printlnFn(dimStyle.Render("Sync journal is unavailable."))
		return nil
	}
	entries, err := a.journal.Recent(ctx, 20)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		printlnFn(dimStyle.Render("No syncs recorded yet."))
		return nil
	}
	for _, e := range entries {
		status := successStyle.Render("ok")
		if !e.Success {
			status = errorStyle.Render("failed")
		}
		printlnFn(fmt.Sprintf("%s  %s  sent %d, received %d, conflicts %d",
			e.StartedAt.Format("2006-01-02 15:04:05"), status,
			e.EntriesSent, e.EntriesReceived, e.ConflictsResolved))
		for _, msg := range e.Errors {
			printlnFn(dimStyle.Render("    " + msg))
		}
	}
	return nil
}

// Save persists the vault explicitly.
func (a *App) Save(ctx context.Context) error {
	if err := a.session.Save(); err != nil {
		return err
	}
	printlnFn(successStyle.Render("Vault saved."))
	return nil
}

// pickRecord prompts for a list number or title fragment and resolves it to
// a single record.
func (a *App) pickRecord() (*store.Record, error) {
	st, err := a.session.Store()
	if err != nil {
		return nil, err
	}
	choice, err := GetSimpleText(a.reader, "Entry number or title", a.out)
	if err != nil {
		return nil, err
	}

	records, err := st.List()
	if err != nil {
		return nil, err
	}
	if n, err := strconv.Atoi(choice); err == nil {
		if n < 1 || n > len(records) {
			return nil, fmt.Errorf("no entry %d", n)
		}
		return records[n-1], nil
	}

	hits, err := st.Search(choice)
	if err != nil {
		return nil, err
	}
	switch len(hits) {
	case 0:
		return nil, fmt.Errorf("no entry matches %q", choice)
	case 1:
		return hits[0], nil
	default:
		return nil, fmt.Errorf("%q is ambiguous (%d matches)", choice, len(hits))
	}
}
