package ops

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"

	"github.com/hpungsan/ghar/internal/config"
	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/household"
	"github.com/hpungsan/ghar/internal/logging"
	"github.com/hpungsan/ghar/internal/store"
)

// ImportMode controls how imported records meet stored ones.
type ImportMode string

const (
	ImportModeAppend  ImportMode = "append"  // keep stored records, skip ids already present
	ImportModeReplace ImportMode = "replace" // clear every key present in the file first
)

// maxImportLine bounds one JSONL line.
const maxImportLine = 4 * 1024 * 1024

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path   string     // required
	Mode   ImportMode // default: append
	Domain string     // required for csv files
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int            `json:"imported"`
	Skipped  int            `json:"skipped"`
	Keys     map[string]int `json:"keys"`
	Errors   []ImportError  `json:"errors"`
}

// ImportError represents an error that occurred during import.
type ImportError struct {
	Line    int    `json:"line"`
	Key     string `json:"key,omitempty"`
	ID      int64  `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type importRecord struct {
	line int
	tag  household.Tag
	id   int64
	rec  store.Record
}

// Import loads records from a JSONL export (or a CSV export of one domain).
// Each storage key is written once, so a key is either fully imported or untouched.
// Records from the legacy Wi-Fi key are imported into wifiNetworks.
func Import(ctx context.Context, s store.Store, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeAppend
	}
	if input.Mode != ImportModeAppend && input.Mode != ImportModeReplace {
		return nil, errors.NewInvalidRequest("mode must be one of: append, replace")
	}
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	isCSV := strings.EqualFold(filepath.Ext(input.Path), ExtCSV)
	var csvTag household.Tag
	if isCSV {
		if input.Domain == "" {
			return nil, errors.NewInvalidRequest("csv import requires a domain")
		}
		var err error
		if csvTag, err = ResolveDomain(input.Domain); err != nil {
			return nil, err
		}
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		var gErr *errors.GharError
		if stderrors.As(err, &gErr) {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	var (
		records   []importRecord
		rowErrors []ImportError
	)
	if isCSV {
		records, rowErrors = parseCSVFile(file, csvTag)
	} else {
		records, rowErrors, err = parseExportFile(file)
		if err != nil {
			return nil, err
		}
	}

	output := &ImportOutput{
		Keys:    map[string]int{},
		Errors:  rowErrors,
		Skipped: len(rowErrors),
	}
	if output.Errors == nil {
		output.Errors = []ImportError{}
	}

	// Group by tag, keeping first-seen order of keys and records.
	var order []household.Tag
	byTag := map[household.Tag][]importRecord{}
	for _, r := range records {
		if _, seen := byTag[r.tag]; !seen {
			order = append(order, r.tag)
		}
		byTag[r.tag] = append(byTag[r.tag], r)
	}

	for _, tag := range order {
		key := tag.StorageKey()
		group := byTag[tag]
		var added int
		var skipped []ImportError
		_, err := s.Mutate(ctx, key, func(coll store.Collection) (store.Collection, error) {
			added, skipped = 0, nil
			out := coll.Clone()
			if input.Mode == ImportModeReplace {
				out = store.Collection{}
			}
			for _, r := range group {
				if out.Index(r.id) >= 0 {
					skipped = append(skipped, ImportError{
						Line:    r.line,
						Key:     key,
						ID:      r.id,
						Code:    "ID_EXISTS",
						Message: fmt.Sprintf("record %d already exists in %s", r.id, key),
					})
					continue
				}
				out = append(out, r.rec)
				added++
			}
			return out, nil
		})
		if err != nil {
			return nil, err
		}
		output.Imported += added
		output.Skipped += len(skipped)
		output.Errors = append(output.Errors, skipped...)
		output.Keys[key] = added
	}

	logging.From(ctx).Info("import finished",
		"path", input.Path, "mode", input.Mode, "imported", output.Imported, "skipped", output.Skipped)
	return output, nil
}

// parseExportFile reads a JSONL export. Bad lines become ImportErrors; an
// unsupported header aborts the import.
func parseExportFile(r io.Reader) ([]importRecord, []ImportError, error) {
	var records []importRecord
	var parseErrors []ImportError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxImportLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var raw struct {
			GharExport    bool            `json:"_ghar_export"`
			SchemaVersion string          `json:"schema_version"`
			Key           string          `json:"key"`
			Record        json.RawMessage `json:"record"`
		}
		if err := json.Unmarshal(line, &raw); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}

		if raw.GharExport {
			if raw.SchemaVersion != ExportSchemaVersion {
				return nil, nil, errors.NewInvalidRequest(
					fmt.Sprintf("unsupported export schema_version %q (want %s)", raw.SchemaVersion, ExportSchemaVersion))
			}
			continue
		}

		tag, ok := household.TagForKey(raw.Key)
		if !ok {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Key:     raw.Key,
				Code:    "UNKNOWN_KEY",
				Message: fmt.Sprintf("unknown storage key %q", raw.Key),
			})
			continue
		}

		rec, err := store.DecodeRecord(raw.Record)
		if err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Key:     raw.Key,
				Code:    "INVALID_RECORD",
				Message: fmt.Sprintf("invalid record: %v", err),
			})
			continue
		}

		r, ierr := checkRecord(lineNum, tag, rec)
		if ierr != nil {
			parseErrors = append(parseErrors, *ierr)
			continue
		}
		records = append(records, r)
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return records, parseErrors, nil
}

// parseCSVFile reads a CSV export of one domain. Line numbers count the header as line 1.
func parseCSVFile(r io.Reader, tag household.Tag) ([]importRecord, []ImportError) {
	switch tag {
	case household.TagVehicle:
		return decodeCSV[household.Vehicle](r, tag)
	case household.TagSubscription:
		return decodeCSV[household.Subscription](r, tag)
	case household.TagBill:
		return decodeCSV[household.Bill](r, tag)
	case household.TagPassword:
		return decodeCSV[household.Password](r, tag)
	case household.TagWifi:
		return decodeCSV[household.WifiNetwork](r, tag)
	case household.TagInsurance:
		return decodeCSV[household.InsurancePolicy](r, tag)
	case household.TagSavings:
		return decodeCSV[household.SavingsGoal](r, tag)
	default:
		return decodeCSV[household.GeneralItem](r, tag)
	}
}

func decodeCSV[T household.Entity](r io.Reader, tag household.Tag) ([]importRecord, []ImportError) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, []ImportError{{Line: 1, Code: "PARSE_ERROR", Message: fmt.Sprintf("invalid header: %v", err)}}
	}

	var records []importRecord
	var parseErrors []ImportError
	for lineNum := 2; ; lineNum++ {
		var v T
		err := dec.Decode(&v)
		if err == io.EOF {
			break
		}
		if err != nil {
			var fieldErr *csvutil.DecodeError
			if stderrors.As(err, &fieldErr) && fieldErr.Field == "id" {
				// Same report as a JSONL line without a usable id.
				parseErrors = append(parseErrors, ImportError{
					Line:    lineNum,
					Key:     tag.StorageKey(),
					Code:    "INVALID_RECORD",
					Message: "missing or non-numeric id",
				})
				continue
			}
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: err.Error(),
			})
			var typeErr *csvutil.UnmarshalTypeError
			var csvErr *csv.ParseError
			if stderrors.As(err, &typeErr) || stderrors.As(err, &csvErr) {
				continue
			}
			break
		}

		rec, err := household.ToRecord(v)
		if err != nil {
			parseErrors = append(parseErrors, ImportError{Line: lineNum, Code: "INVALID_RECORD", Message: err.Error()})
			continue
		}
		if tag == household.TagVehicle {
			rec["maintenanceRecords"] = []any{}
		}
		r, ierr := checkRecord(lineNum, tag, rec)
		if ierr != nil {
			parseErrors = append(parseErrors, *ierr)
			continue
		}
		records = append(records, r)
	}
	return records, parseErrors
}

// checkRecord requires a positive id and a shape that decodes for tag.
func checkRecord(line int, tag household.Tag, rec store.Record) (importRecord, *ImportError) {
	key := tag.StorageKey()
	id, ok := rec.ID()
	if !ok || id <= 0 {
		return importRecord{}, &ImportError{
			Line:    line,
			Key:     key,
			Code:    "INVALID_RECORD",
			Message: "missing or non-numeric id",
		}
	}
	if _, err := household.FromRecord(tag, rec); err != nil {
		return importRecord{}, &ImportError{
			Line:    line,
			Key:     key,
			ID:      id,
			Code:    "INVALID_RECORD",
			Message: fmt.Sprintf("record does not fit %s: %v", tag, err),
		}
	}
	return importRecord{line: line, tag: tag, id: id, rec: rec}, nil
}
