// Package form collects and validates a loan application before it is sent
// for scoring.
package form

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Field names a validated input.
type Field string

const (
	FieldFullName   Field = "full_name"
	FieldLoanAmount Field = "loan_amount"
	FieldLoanTerm   Field = "loan_term"
	FieldFiles      Field = "files"
)

// Validation messages shown next to each field.
const (
	MsgNameRequired     = "Full name is required"
	MsgNameInvalid      = "Please enter a valid full name"
	MsgAmountRequired   = "Valid loan amount is required"
	MsgAmountMin        = "Minimum loan amount is KSh 1,000"
	MsgAmountMax        = "Maximum loan amount is KSh 1,000,000"
	MsgTermRequired     = "Please select a loan term"
	MsgTermInvalid      = "Loan term must be 3, 6, 12, 18 or 24 months"
	MsgFileRequired     = "Please upload your M-Pesa statement"
	MsgFileTypeRejected = "Please upload PDF or CSV files only"
)

var (
	MinAmount = decimal.NewFromInt(1000)
	MaxAmount = decimal.NewFromInt(1000000)
)

// AllowedTerms lists the loan terms offered, in months.
var AllowedTerms = []int{3, 6, 12, 18, 24}

// DefaultTerm is preselected in a fresh form.
const DefaultTerm = "6"

// ValidationErrors maps each invalid field to its message.
type ValidationErrors map[Field]string

// Error implements error so the map can travel as one.
func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, v[Field(f)]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Submission is a validated application ready to send. Only Statement is
// transmitted; Selected records how many acceptable files the user picked.
type Submission struct {
	FullName   string
	Amount     decimal.Decimal
	TermMonths int
	Statement  File
	Selected   int
}

// Form holds the raw, user-edited fields and their current errors.
type Form struct {
	FullName   string
	LoanAmount string
	LoanTerm   string
	Files      []File
	Errors     ValidationErrors
}

// New returns an empty form with the default term selected.
func New() *Form {
	return &Form{LoanTerm: DefaultTerm, Errors: ValidationErrors{}}
}

// SetFullName updates the name and clears its error.
func (f *Form) SetFullName(v string) {
	f.FullName = v
	f.clear(FieldFullName)
}

// SetLoanAmount updates the amount and clears its error.
func (f *Form) SetLoanAmount(v string) {
	f.LoanAmount = v
	f.clear(FieldLoanAmount)
}

// SetLoanTerm updates the term and clears its error.
func (f *Form) SetLoanTerm(v string) {
	f.LoanTerm = v
	f.clear(FieldLoanTerm)
}

// AddFiles replaces the selection with the PDF/CSV files among files. When
// nothing offered was acceptable the previous selection stays and the files
// field carries a type error.
func (f *Form) AddFiles(files ...File) int {
	accepted, _ := FilterAccepted(files)
	if len(accepted) == 0 {
		if len(files) > 0 {
			f.setError(FieldFiles, MsgFileTypeRejected)
		}
		return 0
	}
	f.Files = accepted
	f.clear(FieldFiles)
	return len(accepted)
}

// RemoveFile drops the i-th selected file; out-of-range indexes are ignored.
func (f *Form) RemoveFile(i int) {
	if i < 0 || i >= len(f.Files) {
		return
	}
	f.Files = append(f.Files[:i:i], f.Files[i+1:]...)
}

// Submit validates the form. On success it returns the normalized
// submission and nil; otherwise nil and the field errors, which are also
// kept on the form.
func (f *Form) Submit() (*Submission, ValidationErrors) {
	errs := ValidationErrors{}

	name := strings.TrimSpace(f.FullName)
	switch {
	case name == "":
		errs[FieldFullName] = MsgNameRequired
	case utf8.RuneCountInString(name) < 2:
		errs[FieldFullName] = MsgNameInvalid
	}

	amount, msg := parseAmount(f.LoanAmount)
	if msg != "" {
		errs[FieldLoanAmount] = msg
	}

	term, msg := parseTerm(f.LoanTerm)
	if msg != "" {
		errs[FieldLoanTerm] = msg
	}

	accepted, _ := FilterAccepted(f.Files)
	if len(accepted) == 0 {
		if len(f.Files) > 0 || f.Errors[FieldFiles] == MsgFileTypeRejected {
			errs[FieldFiles] = MsgFileTypeRejected
		} else {
			errs[FieldFiles] = MsgFileRequired
		}
	}

	f.Errors = errs
	if len(errs) > 0 {
		return nil, errs
	}

	return &Submission{
		FullName:   name,
		Amount:     amount,
		TermMonths: term,
		Statement:  accepted[0],
		Selected:   len(accepted),
	}, nil
}

func parseAmount(raw string) (decimal.Decimal, string) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return decimal.Zero, MsgAmountRequired
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, MsgAmountRequired
	}
	if amount.LessThan(MinAmount) {
		return decimal.Zero, MsgAmountMin
	}
	if amount.GreaterThan(MaxAmount) {
		return decimal.Zero, MsgAmountMax
	}
	return amount, ""
}

func parseTerm(raw string) (int, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, MsgTermRequired
	}
	term, err := strconv.Atoi(raw)
	if err != nil {
		return 0, MsgTermRequired
	}
	for _, allowed := range AllowedTerms {
		if term == allowed {
			return term, ""
		}
	}
	return 0, MsgTermInvalid
}

func (f *Form) setError(field Field, msg string) {
	if f.Errors == nil {
		f.Errors = ValidationErrors{}
	}
	f.Errors[field] = msg
}

func (f *Form) clear(field Field) {
	delete(f.Errors, field)
}
