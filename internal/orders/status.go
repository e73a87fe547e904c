package orders

import (
	"fmt"

	"github.com/ariefcatur/go-marketplace-core/internal/theme"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusPreparing  Status = "preparing"
	StatusReady      Status = "ready"
	StatusInDelivery Status = "in-delivery"
	StatusDelivered  Status = "delivered"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// FallbackColor is returned by StatusColor for anything outside the enum.
const FallbackColor = theme.TextSecondary

type Option struct {
	Label  string      `json:"label"`
	Target Status      `json:"target_status"`
	Color  theme.Token `json:"color"`
}

type Button struct {
	Key    string      `json:"key"`
	Label  string      `json:"label"`
	Target Status      `json:"target_status"`
	Color  theme.Token `json:"color"`
	Action func()      `json:"-"`
}

var statusColors = map[Status]theme.Token{
	StatusPending:    theme.Warning,
	StatusPreparing:  theme.Info,
	StatusReady:      theme.Success,
	StatusInDelivery: theme.Primary,
	StatusDelivered:  theme.Success,
	StatusCompleted:  theme.Success,
	StatusCancelled:  theme.Error,
}

var statusTexts = map[Status]string{
	StatusPending:    "Pending",
	StatusPreparing:  "Preparing",
	StatusReady:      "Ready",
	StatusInDelivery: "In Delivery",
	StatusDelivered:  "Delivered",
	StatusCompleted:  "Completed",
	StatusCancelled:  "Cancelled",
}

// first entry per status is the primary action
var ownerOptions = map[Status][]Option{
	StatusPending: {
		{Label: "Accept", Target: StatusPreparing, Color: theme.Success},
		{Label: "Deny", Target: StatusCancelled, Color: theme.Error},
	},
	StatusPreparing: {
		{Label: "Ready", Target: StatusReady, Color: theme.Success},
		{Label: "Delivering", Target: StatusInDelivery, Color: theme.Info},
		{Label: "Cancel", Target: StatusCancelled, Color: theme.Error},
	},
	StatusReady: {
		{Label: "Complete", Target: StatusCompleted, Color: theme.Success},
		{Label: "Cancel", Target: StatusCancelled, Color: theme.Error},
	},
	StatusInDelivery: {
		{Label: "Complete", Target: StatusCompleted, Color: theme.Success},
	},
}

// Contact and the terminal Complete point back at the current status.
// They are shown as informational buttons, not transitions.
var customerOptions = map[Status][]Option{
	StatusPending: {
		{Label: "Cancel", Target: StatusCancelled, Color: theme.Error},
	},
	StatusPreparing: {
		{Label: "Cancel", Target: StatusCancelled, Color: theme.Error},
	},
	StatusReady: {
		{Label: "Contact", Target: StatusReady, Color: theme.Primary},
	},
	StatusInDelivery: {
		{Label: "Contact", Target: StatusInDelivery, Color: theme.Primary},
	},
	StatusCompleted: {
		{Label: "Complete", Target: StatusCompleted, Color: theme.Success},
	},
}

// validNext holds the real transitions: every non-self target of either
// role, plus cancellation from any non-terminal status.
var validNext = buildValidNext()

func buildValidNext() map[Status]map[Status]bool {
	next := map[Status]map[Status]bool{}
	for s := range statusTexts {
		next[s] = map[Status]bool{}
		if !s.Terminal() {
			next[s][StatusCancelled] = true
		}
	}
	for _, table := range []map[Status][]Option{ownerOptions, customerOptions} {
		for from, opts := range table {
			for _, o := range opts {
				if o.Target != from {
					next[from][o.Target] = true
				}
			}
		}
	}
	return next
}

func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	return st, st.Valid()
}

func (s Status) Valid() bool {
	_, ok := statusTexts[s]
	return ok
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusDelivered || s == StatusCancelled
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func StatusColor(s Status) theme.Token {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return FallbackColor
}

// StatusText echoes unknown statuses unchanged.
func StatusText(s Status) string {
	if t, ok := statusTexts[s]; ok {
		return t
	}
	return string(s)
}

// StatusOptions returns a fresh slice; callers may modify it.
func StatusOptions(s Status, viewerIsShopOwner bool) []Option {
	table := customerOptions
	if viewerIsShopOwner {
		table = ownerOptions
	}
	src := table[s]
	out := make([]Option, len(src))
	copy(out, src)
	return out
}

// StatusButtons maps StatusOptions into invocable buttons. Pressing a
// button hands its target to onTransition; a nil handler makes every
// action a no-op.
func StatusButtons(s Status, viewerIsShopOwner bool, onTransition func(Status)) []Button {
	opts := StatusOptions(s, viewerIsShopOwner)
	out := make([]Button, 0, len(opts))
	for i, o := range opts {
		target := o.Target
		action := func() {}
		if onTransition != nil {
			action = func() { onTransition(target) }
		}
		out = append(out, Button{
			Key:    fmt.Sprintf("%s-%d", target, i),
			Label:  o.Label,
			Target: target,
			Color:  o.Color,
			Action: action,
		})
	}
	return out
}
