package portal

import (
	"errors"
	"fmt"
	"strings"

	"timetabledocs/internal/config"
)

// DefaultDepartment is the constant tag sent when nothing else is configured.
const DefaultDepartment = "default"

var (
	ErrNoDepartmentClaim    = errors.New("department claim is missing")
	ErrNoDepartmentSelected = errors.New("no department selected")
)

// DepartmentPolicy decides where the upload's department tag comes from.
type DepartmentPolicy struct {
	Source   string // config.DepartmentFromClaim, DepartmentFromConstant or DepartmentFromUserSelected
	Constant string
	Claim    string // the identity's department claim, when known
}

// Resolve returns the department to submit. selected is the user's choice on the form.
// A claim or user-selected source with no value is an error rather than a silent default.
func (p DepartmentPolicy) Resolve(selected string) (string, error) {
	switch p.Source {
	case config.DepartmentFromClaim:
		if c := strings.TrimSpace(p.Claim); c != "" {
			return c, nil
		}
		return "", ErrNoDepartmentClaim
	case config.DepartmentFromUserSelected:
		if s := strings.TrimSpace(selected); s != "" {
			return s, nil
		}
		return "", ErrNoDepartmentSelected
	case config.DepartmentFromConstant, "":
		if c := strings.TrimSpace(p.Constant); c != "" {
			return c, nil
		}
		return DefaultDepartment, nil
	default:
		return "", fmt.Errorf("unknown department source %q", p.Source)
	}
}
