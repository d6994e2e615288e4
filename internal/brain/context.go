package brain

import (
	"fmt"
	"strings"

	"github.com/threadline/stylist/internal/session"
)

// BuildContext projects a session into the customer-context block appended
// to the system prompt. Pure and deterministic; the emission order (identity,
// stored profile, fresh profile, cart, transition note) is fixed so prompts
// are reproducible.
//
// fresh is a profile computed from an image attached to the current message.
// It is emitted as its own block and supplements rather than replaces the
// stored profile; persisting it is the caller's concern.
func BuildContext(s *session.Session, channel string, fresh *session.StyleProfile) string {
	var b strings.Builder

	b.WriteString("\n\n## CUSTOMER CONTEXT")
	if s.Name != "" {
		fmt.Fprintf(&b, "\n- Name: %s", s.Name)
	}
	fmt.Fprintf(&b, "\n- Current Channel: %s", channel)
	fmt.Fprintf(&b, "\n- Channels Used: %s", strings.Join(s.ChannelsUsed, ", "))
	if s.ChannelSwitches > 0 {
		fmt.Fprintf(&b, "\n- Channel Switches: %d (seamless experience!)", s.ChannelSwitches)
	}

	if p := s.StyleProfile; p != nil {
		b.WriteString("\n\n## STYLE PROFILE (Analyzed)")
		fmt.Fprintf(&b, "\n- Undertone: %s", p.Undertone)
		fmt.Fprintf(&b, "\n- Best Colors: %s", strings.Join(firstN(p.BestColors, 5), ", "))
		fmt.Fprintf(&b, "\n- Avoid Colors: %s", strings.Join(firstN(p.AvoidColors, 3), ", "))
		fmt.Fprintf(&b, "\n- Style Type: %s", p.StylePersonality)
	}

	if fresh != nil {
		b.WriteString("\n\n## JUST ANALYZED IMAGE")
		fmt.Fprintf(&b, "\n- Undertone: %s", fresh.Undertone)
		fmt.Fprintf(&b, "\n- Best Colors: %s", strings.Join(firstN(fresh.BestColors, 5), ", "))
		b.WriteString("\n- Provide personalized color recommendations based on this!")
	}

	if len(s.Cart) > 0 {
		fmt.Fprintf(&b, "\n\n## CURRENT CART (%d items)", len(s.Cart))
		for _, item := range s.Cart[:min(3, len(s.Cart))] {
			fmt.Fprintf(&b, "\n- %s: ₹%d", item.Name, item.Price)
		}
	}

	// Transition note: the two newest recorded turns crossed channels and the
	// incoming message moves off the channel of the newest one. History must
	// not yet contain the current turn when this runs.
	if h := s.ConversationHistory; len(h) >= 2 {
		prev := h[len(h)-1]
		if h[len(h)-2].Channel != prev.Channel && prev.Channel != channel {
			fmt.Fprintf(&b,
				"\n\n[Note: Customer just switched from %s to %s. Acknowledge this seamless transition briefly.]",
				prev.Channel, channel)
		}
	}

	return b.String()
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
