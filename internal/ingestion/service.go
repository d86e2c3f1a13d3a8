package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rpattn/evservice/internal/domain"
	"github.com/rpattn/evservice/internal/entityloader"
	"github.com/rpattn/evservice/internal/repository"
	schemavalidator "github.com/rpattn/evservice/internal/schema/validator"
	"github.com/rpattn/evservice/pkg/validator"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultMaxRows bounds the number of data rows accepted in one upload.
const DefaultMaxRows = 5000

// Mode distinguishes a dry run from a committing import.
type Mode string

const (
	ModePreview Mode = "preview"
	ModeImport  Mode = "import"
)

// OutcomeKind tags the result of one data row.
type OutcomeKind string

const (
	OutcomeCreated OutcomeKind = "created"
	OutcomeUpdated OutcomeKind = "updated"
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeFailed  OutcomeKind = "failed"
)

// RecordDigest is the short projection of a record returned to callers.
type RecordDigest struct {
	Row                  int        `json:"row"`
	ID                   *uuid.UUID `json:"id,omitempty"`
	ServiceRequestNumber string     `json:"serviceRequestNumber"`
	CustomerName         string     `json:"customerName"`
	ServiceType          string     `json:"serviceType"`
	ServiceRequestStatus string     `json:"serviceRequestStatus"`
	Scope                string     `json:"scope"`
}

// RowResult is the outcome of exactly one data row.
type RowResult struct {
	Row     int
	Kind    OutcomeKind
	Digest  RecordDigest
	Message string
	// Notes are non-fatal remarks surfaced as warnings.
	Notes []string
}

// PreviewSummary counts the projected outcome of a preview.
type PreviewSummary struct {
	TotalRows           int `json:"totalRows"`
	NewEVCustomers      int `json:"newEVCustomers"`
	ExistingEVCustomers int `json:"existingEVCustomers"`
	Skipped             int `json:"skipped"`
	Failed              int `json:"failed"`
}

// PreviewResult is returned by Preview. Nothing is persisted.
type PreviewResult struct {
	EVCustomersToCreate []RecordDigest `json:"evCustomersToCreate"`
	EVCustomersToUpdate []RecordDigest `json:"evCustomersToUpdate"`
	Errors              []string       `json:"errors"`
	Warnings            []string       `json:"warnings"`
	Summary             PreviewSummary `json:"summary"`
	// Cancelled marks a partial result: rows after the cancellation point
	// were not processed.
	Cancelled bool `json:"cancelled,omitempty"`
}

// ImportSummary counts the committed outcome of an import.
type ImportSummary struct {
	TotalRows  int `json:"totalRows"`
	Successful int `json:"successful"`
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}

// ImportResult is returned by Import.
type ImportResult struct {
	Summary            ImportSummary  `json:"summary"`
	CreatedEVCustomers []RecordDigest `json:"createdEVCustomers"`
	UpdatedEVCustomers []RecordDigest `json:"updatedEVCustomers"`
	Errors             []string       `json:"errors"`
	Warnings           []string       `json:"warnings"`
	// Cancelled marks a partial result. Rows counted in the summary were
	// persisted; later rows were not processed.
	Cancelled bool `json:"cancelled,omitempty"`
}

// Request describes an uploaded spreadsheet.
type Request struct {
	FileName string
	Data     io.Reader
}

// Options tunes the service.
type Options struct {
	MaxRows int
	Logger  zerolog.Logger
}

// Service runs uploaded spreadsheets through the import pipeline.
type Service struct {
	repo      repository.EVCustomerRepository
	logRepo   repository.ImportLogRepository
	committer *Committer
	validator *validator.JSONBValidator
	defs      map[domain.FieldGroup]map[string]validator.FieldDefinition
	maxRows   int
	logger    zerolog.Logger
}

// NewService creates a new import service.
func NewService(
	repo repository.EVCustomerRepository,
	logRepo repository.ImportLogRepository,
	opts Options,
) *Service {
	maxRows := opts.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Service{
		repo:      repo,
		logRepo:   logRepo,
		committer: NewCommitter(repo),
		validator: validator.NewJSONBValidator(),
		defs: map[domain.FieldGroup]map[string]validator.FieldDefinition{
			domain.GroupCustomer:       schemavalidator.Definitions(domain.GroupCustomer),
			domain.GroupServiceRequest: schemavalidator.Definitions(domain.GroupServiceRequest),
		},
		maxRows: maxRows,
		logger:  opts.Logger,
	}
}

type preparedRow struct {
	raw    RawRow
	fields map[string]string
}

// Preview runs the pipeline without writing and reports what an import would do.
func (s *Service) Preview(ctx context.Context, req Request) (PreviewResult, error) {
	results, err := s.run(ctx, req, ModePreview)
	if err != nil && !isCancellation(err) {
		return PreviewResult{}, err
	}

	preview := PreviewResult{
		EVCustomersToCreate: []RecordDigest{},
		EVCustomersToUpdate: []RecordDigest{},
		Errors:              []string{},
		Warnings:            []string{},
	}
	preview.Summary.TotalRows = len(results)
	for _, result := range results {
		preview.Warnings = append(preview.Warnings, result.Notes...)
		switch result.Kind {
		case OutcomeCreated:
			preview.Summary.NewEVCustomers++
			preview.EVCustomersToCreate = append(preview.EVCustomersToCreate, result.Digest)
		case OutcomeUpdated:
			preview.Summary.ExistingEVCustomers++
			preview.EVCustomersToUpdate = append(preview.EVCustomersToUpdate, result.Digest)
		case OutcomeSkipped:
			preview.Summary.Skipped++
			preview.Warnings = append(preview.Warnings, result.Message)
		case OutcomeFailed:
			preview.Summary.Failed++
			preview.Errors = append(preview.Errors, result.Message)
		}
	}
	if err != nil {
		preview.Cancelled = true
		return preview, err
	}
	return preview, nil
}

// Import runs the pipeline and persists every row that passes. Row failures
// are reported in the result; only unreadable, empty or oversized files fail
// the whole request. On cancellation the rows handled so far are returned
// with Cancelled set, together with the context error.
func (s *Service) Import(ctx context.Context, req Request) (ImportResult, error) {
	results, err := s.run(ctx, req, ModeImport)
	if err != nil && !isCancellation(err) {
		return ImportResult{}, err
	}

	imported := ImportResult{
		CreatedEVCustomers: []RecordDigest{},
		UpdatedEVCustomers: []RecordDigest{},
		Errors:             []string{},
		Warnings:           []string{},
	}
	imported.Summary.TotalRows = len(results)
	for _, result := range results {
		imported.Warnings = append(imported.Warnings, result.Notes...)
		switch result.Kind {
		case OutcomeCreated:
			imported.Summary.Created++
			imported.CreatedEVCustomers = append(imported.CreatedEVCustomers, result.Digest)
		case OutcomeUpdated:
			imported.Summary.Updated++
			imported.UpdatedEVCustomers = append(imported.UpdatedEVCustomers, result.Digest)
		case OutcomeSkipped:
			imported.Summary.Skipped++
			imported.Warnings = append(imported.Warnings, result.Message)
		case OutcomeFailed:
			imported.Summary.Failed++
			imported.Errors = append(imported.Errors, result.Message)
		}
	}
	imported.Summary.Successful = imported.Summary.Created + imported.Summary.Updated

	if err != nil {
		imported.Cancelled = true
		s.logger.Warn().
			Err(err).
			Str("file", req.FileName).
			Int("rows", imported.Summary.TotalRows).
			Int("successful", imported.Summary.Successful).
			Msg("import cancelled")
		return imported, err
	}

	s.logger.Info().
		Str("file", req.FileName).
		Int("rows", imported.Summary.TotalRows).
		Int("created", imported.Summary.Created).
		Int("updated", imported.Summary.Updated).
		Int("failed", imported.Summary.Failed).
		Int("skipped", imported.Summary.Skipped).
		Msg("import completed")

	return imported, nil
}

// ImportLogs lists recorded row failures, newest first. An empty fileName
// lists failures of all files.
func (s *Service) ImportLogs(ctx context.Context, fileName string, limit, offset int) ([]domain.ImportLogEntry, error) {
	if s.logRepo == nil {
		return []domain.ImportLogEntry{}, nil
	}
	return s.logRepo.List(ctx, strings.TrimSpace(fileName), limit, offset)
}

func (s *Service) run(ctx context.Context, req Request, mode Mode) ([]RowResult, error) {
	rows, err := s.readRows(req)
	if err != nil {
		return nil, err
	}

	lookup := entityloader.FromContext(ctx)
	if lookup == nil {
		lookup = entityloader.NewServiceRequestLoader(s.repo)
	}
	reconciler := NewReconciler(lookup)

	prepared := make([]preparedRow, 0, len(rows))
	numbers := make([]string, 0, len(rows))
	for _, raw := range rows {
		fields := Canonicalize(raw)
		prepared = append(prepared, preparedRow{raw: raw, fields: fields})
		numbers = append(numbers, fields[domain.FieldServiceRequestNumber])
	}

	if err := reconciler.Prefetch(ctx, numbers); err != nil {
		// The failed batch is not cached; rows look up individually and fail
		// one by one only if the store stays down.
		s.logger.Warn().Err(err).Str("file", req.FileName).Msg("failed to prefetch existing service requests")
	}

	results := make([]RowResult, 0, len(prepared))
	for _, row := range prepared {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("import of %s cancelled after %d rows: %w", req.FileName, len(results), err)
		}
		result := s.processRow(ctx, row, reconciler, mode)
		if result.Kind == OutcomeFailed {
			s.logRowError(ctx, req, mode, row, result.Message)
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *Service) readRows(req Request) ([]RawRow, error) {
	if req.Data == nil {
		return nil, errors.New("data reader is required")
	}

	payload, err := io.ReadAll(req.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read upload: %v", domain.ErrUnreadableFile, err)
	}

	grid, err := LoadWorkbook(req.FileName, payload)
	if err != nil {
		return nil, err
	}

	headerIndex, err := LocateHeader(grid)
	if err != nil {
		return nil, err
	}

	rows := BuildRawRows(grid, headerIndex)
	if len(rows) == 0 {
		return nil, domain.ErrEmptyFile
	}
	if len(rows) > s.maxRows {
		return nil, fmt.Errorf("%w: %d rows, at most %d allowed", domain.ErrRowLimitExceeded, len(rows), s.maxRows)
	}
	return rows, nil
}

func (s *Service) processRow(ctx context.Context, row preparedRow, reconciler *Reconciler, mode Mode) RowResult {
	number := row.fields[domain.FieldServiceRequestNumber]
	name := row.fields[domain.FieldCustomerName]

	if missing := missingKeyFields(number, name); missing != "" {
		return RowResult{
			Row:     row.raw.Number,
			Kind:    OutcomeSkipped,
			Message: fmt.Sprintf("Row %d: Skipped - missing %s", row.raw.Number, missing),
		}
	}

	rec, err := CoerceRecord(row.fields)
	if err != nil {
		return failedRow(row.raw.Number, err)
	}
	warnings, err := s.validateRecord(rec)
	if err != nil {
		return failedRow(row.raw.Number, err)
	}

	decision, err := reconciler.Decide(ctx, number)
	if err != nil {
		return failedRow(row.raw.Number, err)
	}

	opts := domain.RuleOptions{}
	if decision.Existing != nil {
		opts.FallbackType, _ = domain.ParseServiceType(decision.Existing.Record().String(domain.FieldServiceType))
		opts.StoredNumber = decision.Existing.ServiceRequestNumber()
	}
	if _, err := domain.ApplyRules(&rec, opts); err != nil {
		return failedRow(row.raw.Number, err)
	}

	final := rec
	if decision.Existing != nil {
		final = domain.Merge(decision.Existing.Record(), rec)
	}
	domain.Finalize(&final)

	notes := make([]string, 0, len(warnings)+1)
	for _, warning := range warnings {
		notes = append(notes, fmt.Sprintf("Row %d: %s", row.raw.Number, warning))
	}
	if decision.InBatch {
		notes = append(notes, fmt.Sprintf("Row %d: Service request number %s repeats an earlier row; this row is applied on top of it", row.raw.Number, number))
	}

	var customer domain.EVCustomer
	if mode == ModeImport {
		customer, err = s.committer.Commit(ctx, decision, final)
		if err != nil {
			return failedRow(row.raw.Number, err)
		}
		reconciler.Stage(ctx, customer, true)
	} else {
		if decision.Existing != nil {
			customer = decision.Existing.WithRecord(final)
		} else {
			customer = domain.NewEVCustomer(final)
			customer.ID = uuid.Nil
		}
		reconciler.Stage(ctx, customer, false)
	}

	kind := OutcomeCreated
	if decision.Kind == DecisionUpdate {
		kind = OutcomeUpdated
	}
	return RowResult{
		Row:    row.raw.Number,
		Kind:   kind,
		Digest: digestOf(row.raw.Number, customer),
		Notes:  notes,
	}
}

// validateRecord type-checks both groups. Range warnings do not fail the row.
func (s *Service) validateRecord(rec domain.Record) ([]string, error) {
	var problems, warnings []string
	groups := []struct {
		group domain.FieldGroup
		props domain.Properties
	}{
		{domain.GroupCustomer, rec.Customer},
		{domain.GroupServiceRequest, rec.ServiceRequest},
	}
	for _, g := range groups {
		result := s.validator.ValidateProperties(g.props, s.defs[g.group])
		if !result.IsValid {
			problems = append(problems, result.Messages()...)
		}
		warnings = append(warnings, result.WarningMessages()...)
	}
	if len(problems) > 0 {
		return nil, &domain.SchemaValidationError{Problems: problems}
	}
	return warnings, nil
}

func (s *Service) logRowError(ctx context.Context, req Request, mode Mode, row preparedRow, message string) {
	s.logger.Warn().
		Str("file", req.FileName).
		Str("mode", string(mode)).
		Int("row", row.raw.Number).
		Msg(message)

	if s.logRepo == nil {
		return
	}
	rowNumber := row.raw.Number
	entry := domain.ImportLogEntry{
		FileName:             req.FileName,
		Mode:                 string(mode),
		RowNumber:            &rowNumber,
		ServiceRequestNumber: row.fields[domain.FieldServiceRequestNumber],
		ErrorMessage:         message,
	}
	if err := s.logRepo.Record(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("file", req.FileName).Msg("failed to record import log")
	}
}

func failedRow(number int, err error) RowResult {
	return RowResult{
		Row:     number,
		Kind:    OutcomeFailed,
		Message: fmt.Sprintf("Row %d: %s", number, err.Error()),
	}
}

func missingKeyFields(number, name string) string {
	var missing []string
	if strings.TrimSpace(number) == "" {
		missing = append(missing, "service request number")
	}
	if strings.TrimSpace(name) == "" {
		missing = append(missing, "customer name")
	}
	return strings.Join(missing, " and ")
}

func digestOf(row int, customer domain.EVCustomer) RecordDigest {
	rec := customer.Record()
	digest := RecordDigest{
		Row:                  row,
		ServiceRequestNumber: rec.String(domain.FieldServiceRequestNumber),
		CustomerName:         rec.String(domain.FieldCustomerName),
		ServiceType:          rec.String(domain.FieldServiceType),
		ServiceRequestStatus: rec.String(domain.FieldServiceRequestStatus),
		Scope:                rec.String(domain.FieldScope),
	}
	if customer.ID != uuid.Nil {
		id := customer.ID
		digest.ID = &id
	}
	return digest
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
