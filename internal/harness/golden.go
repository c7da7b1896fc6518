package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/storefront/internal/state"
)

// Render writes the result as the line-oriented text stored in golden
// files: a header, each step with the changes it committed, then the final
// state.
func Render(w io.Writer, name string, r *Result) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "scenario %s\n", name)
	for i, st := range r.Steps {
		fmt.Fprintf(&b, "step %d %s\n", i+1, st.Step)
		for _, c := range st.Changes {
			fmt.Fprintf(&b, "  %04d %s\n", c.Seq, FormatChange(c))
		}
		if st.ErrorCode != "" {
			fmt.Fprintf(&b, "  error %s\n", st.ErrorCode)
		}
	}

	f := r.Final
	b.WriteString("final\n")
	fmt.Fprintf(&b, "  seq=%d loading=%t progress=%s\n", f.Seq, f.Loading, formatProgress(f.Progress))
	if f.User != nil {
		fmt.Fprintf(&b, "  user %s\n", formatUser(f.User))
	} else {
		b.WriteString("  user <none>\n")
	}
	if f.Notification != nil {
		fmt.Fprintf(&b, "  notification %s %q visible=%t pending=%d\n",
			f.Notification.Kind, f.Notification.Message, f.NotificationVisible, f.PendingNotifications)
	} else {
		fmt.Fprintf(&b, "  notification <none> visible=%t pending=0\n", f.NotificationVisible)
	}
	fmt.Fprintf(&b, "  cart count=%d total=%s\n", f.CartCount, f.CartTotal.StringFixed(2))
	for _, e := range f.Cart {
		fmt.Fprintf(&b, "    item=%s qty=%d price=%s\n", e.ItemID, e.Quantity, e.Price.StringFixed(2))
	}
	fmt.Fprintf(&b, "  route %s visits=%s\n", r.Route, strings.Join(r.Visits, ","))

	_, err := w.Write(b.Bytes())
	return err
}

// FormatChange renders one change on a single line.
func FormatChange(c state.Change) string {
	switch c.Op {
	case state.OpUserSet:
		if c.User == nil {
			return string(c.Op) + " <nil>"
		}
		return string(c.Op) + " " + formatUser(c.User)
	case state.OpNotificationPush, state.OpNotificationShift, state.OpNotificationShow:
		if c.Notification == nil {
			return fmt.Sprintf("%s visible=%t", c.Op, c.Visible)
		}
		return fmt.Sprintf("%s %s %q visible=%t", c.Op, c.Notification.Kind, c.Notification.Message, c.Visible)
	case state.OpUploadProgress:
		return fmt.Sprintf("%s %s", c.Op, formatProgress(c.Progress))
	case state.OpCartAdd, state.OpCartIncrement, state.OpCartDecrement:
		return fmt.Sprintf("%s item=%s qty=%d", c.Op, c.ItemID, c.Quantity)
	case state.OpCartRemove:
		return fmt.Sprintf("%s item=%s", c.Op, c.ItemID)
	default:
		return string(c.Op)
	}
}

func formatUser(u *state.User) string {
	return fmt.Sprintf("uid=%s email=%s name=%q phone=%q avatar=%q", u.UID, u.Email, u.Name, u.Phone, u.AvatarURL)
}

func formatProgress(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// RunWithGolden executes a scenario and compares the rendered trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	var buf bytes.Buffer
	if err := Render(&buf, scenarioName, result); err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, buf.Bytes())
	return nil
}
