package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/secondlook/secondlook/internal/api/middleware"
	"github.com/secondlook/secondlook/internal/assessment"
	"github.com/secondlook/secondlook/internal/decision"
	"github.com/secondlook/secondlook/internal/form"
	"github.com/secondlook/secondlook/internal/statement"
	"github.com/secondlook/secondlook/internal/txview"
)

// MaxUploadBytes caps the multipart body kept in memory.
const MaxUploadBytes = 32 << 20

// Browser form fields.
const (
	FieldFullName   = "full_name"
	FieldLoanAmount = "loan_amount"
	FieldLoanTerm   = "loan_term"
	FieldStatement  = "statement"
)

// AssessmentResponse is the current session as served to the front end.
type AssessmentResponse struct {
	Loading          bool           `json:"loading"`
	Error            string         `json:"error,omitempty"`
	Filename         string         `json:"filename,omitempty"`
	Decision         *decision.View `json:"decision,omitempty"`
	TransactionCount int            `json:"transaction_count"`
	View             txview.State   `json:"view"`
}

// AssessmentsHandler drives the assessment controller.
type AssessmentsHandler struct {
	ctrl *assessment.Controller
	log  zerolog.Logger
}

// NewAssessmentsHandler creates a new assessments handler.
func NewAssessmentsHandler(ctrl *assessment.Controller, log zerolog.Logger) *AssessmentsHandler {
	return &AssessmentsHandler{ctrl: ctrl, log: log}
}

// Submit handles POST /api/assessments
func (h *AssessmentsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}

	f, err := formFromRequest(r.MultipartForm)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read uploaded statement")
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read uploaded statement")
		return
	}

	sub, errs := f.Submit()
	if len(errs) > 0 {
		middleware.WriteJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"errors": errs,
		})
		return
	}

	if err := h.ctrl.Submit(r.Context(), *sub); err != nil {
		if errors.Is(err, assessment.ErrSubmissionInFlight) {
			middleware.WriteError(w, http.StatusConflict, "An analysis is already in progress")
			return
		}
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to submit statement")
		return
	}

	resp := h.current()
	if resp.Error != "" {
		middleware.WriteError(w, http.StatusBadGateway, resp.Error)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// formFromRequest fills a form the way the upload page does: fields first,
// then every offered statement through the type filter.
func formFromRequest(mf *multipart.Form) (*form.Form, error) {
	f := form.New()
	if v, ok := firstValue(mf, FieldFullName); ok {
		f.SetFullName(v)
	}
	if v, ok := firstValue(mf, FieldLoanAmount); ok {
		f.SetLoanAmount(v)
	}
	if v, ok := firstValue(mf, FieldLoanTerm); ok {
		f.SetLoanTerm(v)
	}

	headers := mf.File[FieldStatement]
	files := make([]form.File, 0, len(headers))
	for _, fh := range headers {
		file, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	if len(files) > 0 {
		f.AddFiles(files...)
	}
	return f, nil
}

func firstValue(mf *multipart.Form, key string) (string, bool) {
	vals, ok := mf.Value[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

func readPart(fh *multipart.FileHeader) (form.File, error) {
	src, err := fh.Open()
	if err != nil {
		return form.File{}, fmt.Errorf("readPart: opening %q: %w", fh.Filename, err)
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return form.File{}, fmt.Errorf("readPart: reading %q: %w", fh.Filename, err)
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = statement.DetectMIME(fh.Filename, content)
	}
	return form.NewFile(fh.Filename, mimeType, content), nil
}

// Current handles GET /api/assessments/current
func (h *AssessmentsHandler) Current(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.current())
}

func (h *AssessmentsHandler) current() AssessmentResponse {
	st := h.ctrl.State()
	return AssessmentResponse{
		Loading:          st.Loading,
		Error:            st.Error,
		Filename:         st.Filename,
		Decision:         h.ctrl.DecisionView(),
		TransactionCount: len(st.Transactions),
		View:             st.View,
	}
}

// Reset handles DELETE /api/assessments/current
func (h *AssessmentsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Reset()
	middleware.WriteJSON(w, http.StatusOK, h.current())
}

// DismissError handles DELETE /api/assessments/current/error
func (h *AssessmentsHandler) DismissError(w http.ResponseWriter, r *http.Request) {
	h.ctrl.DismissError()
	middleware.WriteJSON(w, http.StatusOK, h.current())
}

// Transactions handles GET /api/assessments/current/transactions
//
// Query parameters: mode, sort (field), dir (asc|desc), type, q, page. Only
// the parameters present change the stored view state.
func (h *AssessmentsHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page := 0
	if raw := query.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid page")
			return
		}
		page = n
	}

	v := h.ctrl.UpdateView(func(s *txview.State) {
		if query.Has("mode") {
			if m := txview.Mode(query.Get("mode")); m != s.Mode {
				s.SetMode(m)
			}
		}
		if field := query.Get("sort"); field != "" {
			dir := txview.Asc
			if strings.EqualFold(query.Get("dir"), string(txview.Desc)) {
				dir = txview.Desc
			}
			if field != s.SortField || dir != s.SortDir {
				s.SortField, s.SortDir, s.Page = field, dir, 1
			}
		}
		if query.Has("type") {
			if t := txview.TypeFilter(query.Get("type")); t != s.Type {
				s.SetTypeFilter(t)
			}
		}
		if query.Has("q") {
			if q := query.Get("q"); q != s.Search {
				s.SetSearch(q)
			}
		}
		if page > 0 {
			s.Page = page
		}
	})
	middleware.WriteJSON(w, http.StatusOK, v)
}

// TogglePeriod handles POST /api/assessments/current/periods/{period}
func (h *AssessmentsHandler) TogglePeriod(w http.ResponseWriter, r *http.Request, period string) {
	v := h.ctrl.UpdateView(func(s *txview.State) {
		s.TogglePeriod(period)
	})
	middleware.WriteJSON(w, http.StatusOK, v)
}
