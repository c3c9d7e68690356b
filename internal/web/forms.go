package web

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/csvexplorer/internal/core"
)

var formValidate = validator.New()

type searchForm struct {
	Column          string `validate:"required"`
	Term            string `validate:"max=256"`
	CaseInsensitive bool
}

type equalityForm struct {
	Column string   `validate:"required"`
	Values []string `validate:"max=1000,dive,max=4096"`
}

type clearForm struct {
	Kind   string `validate:"omitempty,oneof=equality search"`
	Column string `validate:"required_with=Kind"`
}

type deriveForm struct {
	Name  string `validate:"required,max=64"`
	Left  string `validate:"required"`
	Op    string `validate:"required"`
	Right string `validate:"required"`
}

type removeDerivationForm struct {
	Name string `validate:"required"`
}

type capabilityForm struct {
	Measure   string `validate:"required"`
	LSL       string `validate:"required"`
	USL       string `validate:"required"`
	GageRR    string
	Tolerance float64 `validate:"gte=0"`
}

// validateForm runs struct validation and turns failures into a readable
// core.ErrInvalidInput, e.g. "invalid input: Name is required".
func validateForm(v any) error {
	err := formValidate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describeField(fe))
	}
	return fmt.Errorf("%w: %s", core.ErrInvalidInput, strings.Join(problems, "; "))
}

func describeField(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_with":
		return fe.Field() + " is required"
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s allows at most %s entries", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

// parseForm reads an urlencoded or multipart body.
func parseForm(r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	return nil
}

func parseSearchForm(r *http.Request) (searchForm, error) {
	if err := parseForm(r); err != nil {
		return searchForm{}, err
	}
	f := searchForm{
		Column:          r.PostForm.Get("column"),
		Term:            r.PostForm.Get("term"),
		CaseInsensitive: parseBool(r.PostForm.Get("ci")),
	}
	return f, validateForm(f)
}

func parseEqualityForm(r *http.Request) (equalityForm, error) {
	if err := parseForm(r); err != nil {
		return equalityForm{}, err
	}
	f := equalityForm{
		Column: r.PostForm.Get("column"),
		Values: r.PostForm["value"],
	}
	return f, validateForm(f)
}

func parseClearForm(r *http.Request) (clearForm, error) {
	if err := parseForm(r); err != nil {
		return clearForm{}, err
	}
	f := clearForm{
		Kind:   r.PostForm.Get("kind"),
		Column: r.PostForm.Get("column"),
	}
	return f, validateForm(f)
}

func parseDeriveForm(r *http.Request) (core.Derivation, error) {
	if err := parseForm(r); err != nil {
		return core.Derivation{}, err
	}
	f := deriveForm{
		Name:  strings.TrimSpace(r.PostForm.Get("name")),
		Left:  r.PostForm.Get("left"),
		Op:    r.PostForm.Get("op"),
		Right: r.PostForm.Get("right"),
	}
	if err := validateForm(f); err != nil {
		return core.Derivation{}, err
	}
	op, err := core.ParseOperator(f.Op)
	if err != nil {
		return core.Derivation{}, err
	}
	return core.Derivation{Name: f.Name, Left: f.Left, Op: op, Right: f.Right}, nil
}

func parseRemoveDerivationForm(r *http.Request) (removeDerivationForm, error) {
	if err := parseForm(r); err != nil {
		return removeDerivationForm{}, err
	}
	f := removeDerivationForm{Name: r.PostForm.Get("name")}
	return f, validateForm(f)
}

// parseCapabilityQuery reads the capability form from the query string.
// ok is false when the form was not submitted at all.
func parseCapabilityQuery(r *http.Request) (f capabilityForm, raw string, ok bool, err error) {
	q := r.URL.Query()
	if q.Get("measure") == "" && q.Get("lsl") == "" && q.Get("usl") == "" {
		return capabilityForm{}, "", false, nil
	}
	f = capabilityForm{
		Measure: q.Get("measure"),
		LSL:     q.Get("lsl"),
		USL:     q.Get("usl"),
		GageRR:  q.Get("gage_rr"),
	}
	raw = strings.TrimSpace(q.Get("tolerance"))
	if raw != "" {
		tol, perr := strconv.ParseFloat(raw, 64)
		if perr != nil {
			return f, raw, true, fmt.Errorf("%w: Tolerance must be a number", core.ErrInvalidInput)
		}
		f.Tolerance = tol
	}
	return f, raw, true, validateForm(f)
}

func (f capabilityForm) input() core.CapabilityInput {
	return core.CapabilityInput{
		Measure:           f.Measure,
		LSL:               f.LSL,
		USL:               f.USL,
		GageRR:            f.GageRR,
		ProposedTolerance: f.Tolerance,
	}
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
