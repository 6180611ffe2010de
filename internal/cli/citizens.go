package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/nidkeeper/internal/models"
)

// citizenField binds a prompt to one editable Citizen field.
type citizenField struct {
	prompt string
	value  func(c *models.Citizen) *string
}

var citizenFields = []citizenField{
	{"Full name", func(c *models.Citizen) *string { return &c.Name }},
	{"Date of birth (DD/MM/YYYY)", func(c *models.Citizen) *string { return &c.DOB }},
	{"Gender", func(c *models.Citizen) *string { return &c.Gender }},
	{"Address", func(c *models.Citizen) *string { return &c.Address }},
	{"Father's name", func(c *models.Citizen) *string { return &c.FatherName }},
	{"Mother's name", func(c *models.Citizen) *string { return &c.MotherName }},
	{"Blood group", func(c *models.Citizen) *string { return &c.BloodGroup }},
}

// promptCitizen fills c field by field. Existing values are offered as
// defaults.
func (a *App) promptCitizen(c *models.Citizen) error {
	for _, f := range citizenFields {
		p := f.value(c)
		v, err := getTextWithDefault(a.reader, f.prompt, *p, a.out)
		if err != nil {
			return err
		}
		*p = v
	}
	return nil
}

func (a *App) nidArg(nid string) (string, error) {
	if nid != "" {
		return nid, nil
	}
	return getSimpleText(a.reader, "Enter NID", a.out)
}

// Register prompts for a new record. An empty NID lets the service
// assign one.
func (a *App) Register(ctx context.Context) error {
	nid, err := getSimpleText(a.reader, "Enter NID (empty to generate)", a.out)
	if err != nil {
		return err
	}
	c := &models.Citizen{NID: nid}
	if err := a.promptCitizen(c); err != nil {
		return err
	}

	saved, err := a.session.Register(ctx, c)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered citizen with NID %s\n", saved.NID)
	return nil
}

func (a *App) Search(ctx context.Context, nid string) error {
	nid, err := a.nidArg(nid)
	if err != nil {
		return err
	}
	c, err := a.session.Search(ctx, nid)
	if err != nil {
		return err
	}
	printCitizen(a, c)
	return nil
}

// Update shows the current record and prompts for replacements. The
// lookup itself is audited as a search.
func (a *App) Update(ctx context.Context, nid string) error {
	nid, err := a.nidArg(nid)
	if err != nil {
		return err
	}
	c, err := a.session.Search(ctx, nid)
	if err != nil {
		return err
	}
	printCitizen(a, c)
	fmt.Fprintln(a.out, "Press Enter to keep a value")
	if err := a.promptCitizen(c); err != nil {
		return err
	}

	if err := a.session.Update(ctx, c); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated citizen %s\n", c.NID)
	return nil
}

func (a *App) Delete(ctx context.Context, nid string) error {
	nid, err := a.nidArg(nid)
	if err != nil {
		return err
	}
	answer, err := getSimpleText(a.reader, fmt.Sprintf("Delete citizen %s? [y/N]", nid), a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}

	if err := a.session.Delete(ctx, nid); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted citizen %s\n", nid)
	return nil
}

func (a *App) List(ctx context.Context) error {
	all, err := a.session.List(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Fprintln(a.out, "No records")
		return nil
	}
	for _, c := range all {
		fmt.Fprintln(a.out, c)
	}
	fmt.Fprintf(a.out, "%d record(s)\n", len(all))
	return nil
}

func printCitizen(a *App, c *models.Citizen) {
	fmt.Fprintf(a.out, "NID:           %s\n", c.NID)
	fmt.Fprintf(a.out, "Name:          %s\n", c.Name)
	fmt.Fprintf(a.out, "Date of birth: %s\n", c.DOB)
	fmt.Fprintf(a.out, "Gender:        %s\n", c.Gender)
	fmt.Fprintf(a.out, "Address:       %s\n", c.Address)
	fmt.Fprintf(a.out, "Father:        %s\n", c.FatherName)
	fmt.Fprintf(a.out, "Mother:        %s\n", c.MotherName)
	fmt.Fprintf(a.out, "Blood group:   %s\n", c.BloodGroup)
	fmt.Fprintf(a.out, "Registered:    %s\n", c.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(a.out, "Last modified: %s\n", c.UpdatedAt.Format("2006-01-02 15:04:05"))
}
