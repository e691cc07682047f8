// Package ui holds the interactive forms and styled output of the meetos
// maintenance command.
package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/redmonkez12/meetos/internal/group"
	"github.com/redmonkez12/meetos/internal/store"
)

// GroupForm collects the fields of a new group. Values already set are used
// as defaults.
type GroupForm struct {
	Owner int64
	Input group.Input
}

// Run displays the form and fills f.
func (f *GroupForm) Run() error {
	owner := ""
	if f.Owner > 0 {
		owner = strconv.FormatInt(f.Owner, 10)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Owner").
				Description("uid of a verified user").
				Placeholder("1").
				Value(&owner).
				Validate(func(s string) error {
					if uid, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err != nil || uid <= 0 {
						return fmt.Errorf("owner must be a positive number")
					}
					return nil
				}),

			huh.NewInput().
				Title("Name").
				Value(&f.Input.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name is required")
					}
					return nil
				}),

			huh.NewInput().
				Title("Location").
				Placeholder("Online").
				Value(&f.Input.Location),

			huh.NewText().
				Title("Description").
				Description("Markdown is rendered on the group page").
				Value(&f.Input.Description),
		),
	).WithTheme(huh.ThemeCatppuccin())

	if err := form.Run(); err != nil {
		return err
	}

	f.Owner, _ = strconv.ParseInt(strings.TrimSpace(owner), 10, 64)
	return nil
}

// Confirm asks a yes/no question, defaulting to no.
func Confirm(question string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	return ok, err
}

func PrintUsers(users []store.User) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("Users (%d)", len(users))))
	fmt.Println(headerStyle.Render(fmt.Sprintf("%-6s %-24s %-32s %s", "UID", "Name", "Email", "Verified")))
	for _, u := range users {
		verified := errorStyle.Render("no")
		if u.Verified {
			verified = okStyle.Render("yes")
		}
		fmt.Printf("%-6d %-24s %-32s %s\n", u.UID, u.Name, u.Email, verified)
	}
	fmt.Println()
}

func PrintGroups(groups []store.Group) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("Groups (%d)", len(groups))))
	fmt.Println(headerStyle.Render(fmt.Sprintf("%-6s %-32s %-20s %s", "GID", "Name", "Location", "Owner")))
	for _, g := range groups {
		fmt.Printf("%-6d %-32s %-20s %d\n", g.GID, g.Name, g.Location, g.Owner)
	}
	fmt.Println()
}

func PrintAudit(entries []store.AuditEntry) {
	fmt.Println(titleStyle.Render("Audit"))
	for _, e := range entries {
		fmt.Printf("%s %-20s %v\n", mutedStyle.Render(e.Date.Format("2006-01-02 15:04:05")), e.Type, e.Data)
	}
	fmt.Println()
}

func PrintAdmins(emails []string) {
	fmt.Println(titleStyle.Render("Admins"))
	if len(emails) == 0 {
		fmt.Println(mutedStyle.Render("  none configured, set ADMINS"))
	}
	for _, e := range emails {
		fmt.Println("  " + e)
	}
	fmt.Println()
}

// PrintGroupCreated prints the created group and where to find it.
func PrintGroupCreated(g *store.Group, baseURL string) {
	fmt.Println(okStyle.Render(fmt.Sprintf("Group %q created", g.Name)))
	fmt.Println(mutedStyle.Render(fmt.Sprintf("  %s/group/%d", baseURL, g.GID)))
	fmt.Println()
}

func PrintSuccess(msg string) {
	fmt.Println(okStyle.Render(msg))
}

// PrintError prints an error message.
func PrintError(msg string) {
	fmt.Println(errorStyle.Render("Error: " + msg))
}
