package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backends a scenario can run against.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Step actions.
const (
	ActionSignUp      = "signup"
	ActionLogin       = "login"
	ActionLogout      = "logout"
	ActionReset       = "reset"
	ActionEditProfile = "edit_profile"
	ActionAdd         = "add"
	ActionRemove      = "remove"
	ActionIncrement   = "increment"
	ActionDecrement   = "decrement"
	ActionClear       = "clear"
	ActionDismiss     = "dismiss"
	ActionAdvance     = "advance"
	ActionRedirect    = "redirect"
	ActionFail        = "fail"
)

// Services a fail step can target.
const (
	ServiceIdentity = "identity"
	ServiceProfile  = "profile"
	ServiceBlob     = "blob"
)

// Scenario is a scripted session.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario exercises.
	Description string `yaml:"description"`

	// Backend selects the identity and profile implementations.
	// Empty means BackendMemory.
	Backend string `yaml:"backend,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`
}

// Step is one user action. Which fields apply depends on Action.
type Step struct {
	Action string `yaml:"action"`

	Item string `yaml:"item,omitempty"`

	Email    string `yaml:"email,omitempty"`
	Password string `yaml:"password,omitempty"`
	Name     string `yaml:"name,omitempty"`
	Phone    string `yaml:"phone,omitempty"`

	// Avatar is the inline body of an avatar upload for edit_profile.
	Avatar string `yaml:"avatar,omitempty"`

	Duration time.Duration `yaml:"duration,omitempty"`
	Path     string        `yaml:"path,omitempty"`

	// Service, Op, Code and Message describe an injected failure.
	Service string `yaml:"service,omitempty"`
	Op      string `yaml:"op,omitempty"`
	Code    string `yaml:"code,omitempty"`
	Message string `yaml:"message,omitempty"`

	// ExpectError is the code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// String renders the step for traces: the action followed by the fields
// that identify it. Passwords and avatar bodies are left out.
func (s Step) String() string {
	var b strings.Builder
	b.WriteString(s.Action)
	field := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&b, " %s=%s", k, v)
		}
	}
	switch s.Action {
	case ActionFail:
		field("service", s.Service)
		field("op", s.Op)
		field("code", s.Code)
	case ActionAdvance:
		field("duration", s.Duration.String())
	case ActionEditProfile:
		field("name", fmt.Sprintf("%q", s.Name))
		field("phone", fmt.Sprintf("%q", s.Phone))
		if s.Avatar != "" {
			fmt.Fprintf(&b, " avatar=%dB", len(s.Avatar))
		}
	default:
		field("item", s.Item)
		field("email", s.Email)
		field("path", s.Path)
	}
	field("expect_error", s.ExpectError)
	return b.String()
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "step:" vs "steps:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Backend {
	case "":
		s.Backend = BackendMemory
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i], s.Backend); err != nil {
			return err
		}
	}
	return nil
}

// validateStep validates a single step based on its action.
func validateStep(index int, st *Step, backend string) error {
	switch st.Action {
	case "":
		return fmt.Errorf("steps[%d]: action is required", index)
	case ActionSignUp, ActionLogin:
		if st.Email == "" {
			return fmt.Errorf("steps[%d]: email is required for %s", index, st.Action)
		}
	case ActionReset:
		if st.Email == "" {
			return fmt.Errorf("steps[%d]: email is required for reset", index)
		}
	case ActionAdd, ActionRemove, ActionIncrement, ActionDecrement:
		if st.Item == "" {
			return fmt.Errorf("steps[%d]: item is required for %s", index, st.Action)
		}
	case ActionAdvance:
		if st.Duration <= 0 {
			return fmt.Errorf("steps[%d]: duration must be positive for advance", index)
		}
	case ActionRedirect:
		if st.Path == "" {
			return fmt.Errorf("steps[%d]: path is required for redirect", index)
		}
	case ActionFail:
		return validateFail(index, st, backend)
	case ActionLogout, ActionEditProfile, ActionClear, ActionDismiss:
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, st.Action)
	}
	return nil
}

func validateFail(index int, st *Step, backend string) error {
	if st.Code == "" {
		return fmt.Errorf("steps[%d]: code is required for fail", index)
	}
	switch st.Service {
	case ServiceIdentity, ServiceProfile:
		if backend != BackendMemory {
			return fmt.Errorf("steps[%d]: %s failures need the memory backend", index, st.Service)
		}
		if st.Op == "" {
			return fmt.Errorf("steps[%d]: op is required for %s failures", index, st.Service)
		}
	case ServiceBlob:
	default:
		return fmt.Errorf("steps[%d]: unknown service %q", index, st.Service)
	}
	return nil
}
