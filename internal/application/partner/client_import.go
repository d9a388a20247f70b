package partner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dentalclinic/backend/internal/application/transaction"
	"github.com/dentalclinic/backend/internal/domain/partner"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/dentalclinic/backend/internal/infrastructure/csvimport"
	"github.com/dentalclinic/backend/internal/infrastructure/logger"
	"github.com/dentalclinic/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Spreadsheet titles accepted for each client column, after folding
var clientColumnAliases = map[string]string{
	"name":                "name",
	"nombre":              "name",
	"nombre_y_apellido":   "name",
	"paciente":            "name",
	"cedula":              "cedula",
	"ci":                  "cedula",
	"cedula_de_identidad": "cedula",
	"documento":           "cedula",
	"phone":               "phone",
	"telefono":            "phone",
	"celular":             "phone",
	"email":               "email",
	"e_mail":              "email",
	"correo":              "email",
	"correo_electronico":  "email",
	"address":             "address",
	"direccion":           "address",
}

const maxImportErrors = 200

var errDryRun = errors.New("dry run")

// ImportClients registers the clients listed in a CSV file. Lines with errors
// are skipped and reported; the remaining lines are written in one
// transaction. Existing cedulas are reported as duplicates unless
// opts.UpdateExisting is set, in which case those clients are updated.
func (s *ClientService) ImportClients(ctx context.Context, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "client", "import")
	defer span.End()

	parser, err := csvimport.NewParser(r, csvimport.WithHeaderAliases(clientColumnAliases))
	if err != nil {
		return nil, shared.ErrValidationFailed.WithMessagef("cannot read file: %v", err)
	}
	if missing := parser.MissingHeaders("name", "cedula"); len(missing) > 0 {
		return nil, shared.ErrValidationFailed.WithMessagef("missing required columns: %s", strings.Join(missing, ", "))
	}

	errs := csvimport.NewErrorCollection(maxImportErrors)
	rows, err := parser.ReadAll(errs)
	if err != nil {
		return nil, shared.ErrValidationFailed.WithMessagef("cannot read file: %v", err)
	}

	validator := csvimport.NewFieldValidator(errs,
		csvimport.Field("name").Required().Length(3, 200).Build(),
		csvimport.Field("cedula").Required().Length(1, 20).Unique(csvimport.NormalizeKey).Build(),
		csvimport.Field("phone").Length(0, 50).Build(),
		csvimport.Field("email").Email().Length(0, 200).Build(),
		csvimport.Field("address").Length(0, 500).Build(),
	)
	valid := make([]*csvimport.Row, 0, len(rows))
	for _, row := range rows {
		if validator.ValidateRow(row) {
			valid = append(valid, row)
		}
	}

	result := &ImportResult{TotalRows: len(rows), DryRun: opts.DryRun}
	err = s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		for _, row := range valid {
			created, err := s.importRow(ctx, repos, row, opts.UpdateExisting)
			var rowErr csvimport.RowError
			switch {
			case errors.As(err, &rowErr):
				errs.Add(rowErr)
			case err != nil:
				return fmt.Errorf("row %d: %w", row.LineNumber, err)
			case created:
				result.Created++
			default:
				result.Updated++
			}
		}
		if opts.DryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result.Skipped = errs.RowCount()
	result.Errors = errs.Errors()
	result.TotalErrors = errs.TotalCount()
	result.Truncated = errs.IsTruncated()

	logger.Enrich(ctx, s.logger).Info("Clients imported",
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("rows", result.TotalRows),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// importRow writes one line. Domain validation problems come back as a
// csvimport.RowError; any other error aborts the import.
func (s *ClientService) importRow(ctx context.Context, repos transaction.Repositories, row *csvimport.Row, update bool) (bool, error) {
	name, cedula := row.Get("name"), row.Get("cedula")
	rowError := func(column, code string, err error) error {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			return csvimport.RowError{Row: row.LineNumber, Column: column, Code: code, Message: domainErr.Message}
		}
		return err
	}

	exists, err := repos.Clients().ExistsByCedula(ctx, cedula, uuid.Nil)
	if err != nil {
		return false, err
	}

	var client *partner.Client
	switch {
	case exists && !update:
		return false, csvimport.RowError{
			Row: row.LineNumber, Column: "cedula", Code: csvimport.ErrCodeDuplicateInDB,
			Message: "a client with this cedula already exists", Value: cedula,
		}
	case exists:
		if client, err = repos.Clients().FindByCedula(ctx, cedula); err != nil {
			return false, err
		}
		if err := client.Rename(name, cedula); err != nil {
			return false, rowError("name", csvimport.ErrCodeValidation, err)
		}
	default:
		if client, err = partner.NewClient(name, cedula); err != nil {
			return false, rowError("name", csvimport.ErrCodeValidation, err)
		}
	}

	phone, email, address := row.Get("phone"), row.Get("email"), row.Get("address")
	if exists {
		// Blank cells keep what is on file.
		phone = firstNonEmpty(phone, client.Phone)
		email = firstNonEmpty(email, client.Email)
		address = firstNonEmpty(address, client.Address)
	}
	if err := client.SetContact(phone, email, address); err != nil {
		return false, rowError("email", csvimport.ErrCodeInvalidFormat, err)
	}
	if err := repos.Clients().Save(ctx, client); err != nil {
		return false, err
	}
	return !exists, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
