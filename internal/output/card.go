package output

import (
	"fmt"
	"strings"

	"github.com/marcus/checkin/internal/models"
)

// ParticipantMarkdown builds the detail card of a participant: status,
// payment, local notes and the registration form answers by section.
func ParticipantMarkdown(p *models.Participant, regform *models.Regform) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", p.FullName)
	if regform != nil {
		fmt.Fprintf(&sb, "*%s*\n\n", regform.Title)
	}

	sb.WriteString("| | |\n|---|---|\n")
	checkin := "not checked in"
	if p.CheckedIn {
		checkin = "checked in"
		if p.CheckedInDt != nil {
			checkin += " at " + p.CheckedInDt.Local().Format("15:04, 2 Jan")
		}
	}
	fmt.Fprintf(&sb, "| Check-in | %s |\n", checkin)
	fmt.Fprintf(&sb, "| State | %s |\n", p.State)
	if p.Price > 0 {
		paid := "unpaid"
		if p.IsPaid {
			paid = "paid"
		}
		fmt.Fprintf(&sb, "| Price | %s (%s) |\n", p.FormattedPrice, paid)
	}
	if p.OccupiedSlots > 1 {
		fmt.Fprintf(&sb, "| Slots | %d |\n", p.OccupiedSlots)
	}
	if p.RegistrationDate != "" {
		fmt.Fprintf(&sb, "| Registered | %s |\n", FormatDate(p.RegistrationDate))
	}

	if p.Notes != "" {
		fmt.Fprintf(&sb, "\n## Notes\n\n%s\n", p.Notes)
	}

	for _, section := range p.RegistrationData {
		if len(section.Fields) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n## %s\n\n", section.Title)
		for _, f := range section.Fields {
			value := f.Display()
			if value == "" {
				value = "-"
			}
			fmt.Fprintf(&sb, "- **%s**: %s\n", f.Title, value)
		}
	}

	if p.Deleted {
		sb.WriteString("\n> This registration no longer exists on the server.\n")
	}
	return sb.String()
}

// RenderParticipant renders the participant card for the terminal
func RenderParticipant(p *models.Participant, regform *models.Regform) (string, error) {
	return RenderMarkdown(ParticipantMarkdown(p, regform))
}
