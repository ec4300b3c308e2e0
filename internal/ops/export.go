package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/ghar/internal/config"
	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/household"
	"github.com/hpungsan/ghar/internal/store"
)

// Export formats
const (
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
)

// ExportSchemaVersion is written to the header line of every JSONL export.
const ExportSchemaVersion = "1.0"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path   string // optional, default: ~/.ghar/exports/<domain|all>-<timestamp>.<format>
	Format string // jsonl (default) or csv
	Domain string // required for csv; optional filter for jsonl
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Format     string `json:"format"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader represents the header line in a JSONL export file.
type ExportHeader struct {
	GharExport    bool   `json:"_ghar_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
}

// ExportLine is one record line in a JSONL export file.
type ExportLine struct {
	Key    string       `json:"key"`
	Record store.Record `json:"record"`
}

// Export writes stored records to a JSONL or CSV file. The file is written to
// a temp name and renamed into place, so an existing export survives failure.
func Export(ctx context.Context, s store.Store, cfg *config.Config, now time.Time, input ExportInput) (*ExportOutput, error) {
	format := strings.ToLower(strings.TrimSpace(input.Format))
	if format == "" {
		format = FormatJSONL
	}
	if format != FormatJSONL && format != FormatCSV {
		return nil, errors.NewInvalidRequest("format must be one of: jsonl, csv")
	}

	var tag household.Tag
	if input.Domain != "" {
		var err error
		if tag, err = ResolveDomain(input.Domain); err != nil {
			return nil, err
		}
	} else if format == FormatCSV {
		return nil, errors.NewInvalidRequest("csv export requires a domain")
	}

	exportPath := input.Path
	if exportPath == "" {
		var err error
		if exportPath, err = defaultExportPath(tag, format, now); err != nil {
			return nil, err
		}
	}
	if want := "." + format; !strings.EqualFold(filepath.Ext(exportPath), want) {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("%s export path must have %s extension", format, want))
	}
	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	// Load before touching the filesystem so a read failure leaves nothing behind.
	tags := household.Tags
	if tag != "" {
		tags = []household.Tag{tag}
	}
	var lines []ExportLine
	for _, t := range tags {
		key := t.StorageKey()
		coll, err := s.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		for _, rec := range coll {
			lines = append(lines, ExportLine{Key: key, Record: rec})
		}
	}
	if tag == "" || tag == household.TagWifi {
		legacy, err := loadIfPresent(ctx, s, household.LegacyWifiKey)
		if err != nil {
			return nil, err
		}
		for _, rec := range legacy {
			lines = append(lines, ExportLine{Key: household.LegacyWifiKey, Record: rec})
		}
	}

	write := func(w io.Writer) (int, error) {
		return writeJSONL(ctx, w, lines, now)
	}
	if format == FormatCSV {
		write = func(w io.Writer) (int, error) {
			return writeCSV(w, tag, lines)
		}
	}

	count, err := writeAtomic(exportPath, now, write)
	if err != nil {
		return nil, err
	}
	return &ExportOutput{
		Path:       exportPath,
		Format:     format,
		Count:      count,
		ExportedAt: now.Unix(),
	}, nil
}

// writeAtomic writes through a temp file in the destination directory and
// renames it into place.
func writeAtomic(exportPath string, now time.Time, write func(io.Writer) (int, error)) (int, error) {
	dir := filepath.Dir(exportPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return 0, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	suffix := ulid.MustNew(ulid.Timestamp(now), ulid.Monotonic(rand.Reader, 0)).String()
	tempPath := exportPath + "." + suffix + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return 0, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	bw := bufio.NewWriter(file)
	count, err := write(bw)
	if err != nil {
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		return 0, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return 0, errors.NewInternal(err)
	}
	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return 0, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink at the destination.
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return 0, errors.NewInvalidRequest("export path must not be a symlink")
	}

	// On Windows, os.Rename fails if the destination exists; the existing file is kept.
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return 0, errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return 0, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return count, nil
}

func writeJSONL(ctx context.Context, w io.Writer, lines []ExportLine, now time.Time) (int, error) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	header := ExportHeader{
		GharExport:    true,
		SchemaVersion: ExportSchemaVersion,
		ExportedAt:    now.Unix(),
	}
	if err := enc.Encode(header); err != nil {
		return 0, errors.NewInternal(err)
	}

	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return i, errors.NewCancelled("export")
		}
		if err := enc.Encode(line); err != nil {
			return i, errors.NewInternal(err)
		}
	}
	return len(lines), nil
}

// writeCSV writes one domain as CSV with a header row. Records whose stored
// shape cannot be read are skipped.
func writeCSV(w io.Writer, tag household.Tag, lines []ExportLine) (int, error) {
	coll := make(store.Collection, len(lines))
	for i, line := range lines {
		coll[i] = line.Record
	}

	cw := csv.NewWriter(w)
	var (
		count int
		err   error
	)
	switch tag {
	case household.TagVehicle:
		count, err = encodeCSV[household.Vehicle](cw, coll, nil)
	case household.TagSubscription:
		count, err = encodeCSV[household.Subscription](cw, coll, nil)
	case household.TagBill:
		count, err = encodeCSV[household.Bill](cw, coll, nil)
	case household.TagPassword:
		count, err = encodeCSV[household.Password](cw, coll, nil)
	case household.TagWifi:
		// Legacy records only carry ssid or name.
		count, err = encodeCSV(cw, coll, func(n *household.WifiNetwork) {
			n.NetworkName = n.DisplayName()
		})
	case household.TagInsurance:
		count, err = encodeCSV[household.InsurancePolicy](cw, coll, nil)
	case household.TagSavings:
		count, err = encodeCSV[household.SavingsGoal](cw, coll, nil)
	default:
		count, err = encodeCSV[household.GeneralItem](cw, coll, nil)
	}
	if err != nil {
		return 0, err
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, errors.NewInternal(err)
	}
	return count, nil
}

func encodeCSV[T any](cw *csv.Writer, coll store.Collection, fix func(*T)) (int, error) {
	enc := csvutil.NewEncoder(cw)
	var zero T
	if err := enc.EncodeHeader(zero); err != nil {
		return 0, errors.NewInternal(err)
	}

	rows, _ := household.DecodeAll[T](coll)
	for i := range rows {
		if fix != nil {
			fix(&rows[i])
		}
		if err := enc.Encode(rows[i]); err != nil {
			return 0, errors.NewInternal(err)
		}
	}
	return len(rows), nil
}

// defaultExportPath generates the default export path.
// Format: ~/.ghar/exports/<domain>-<timestamp>.<format> or all-<timestamp>.jsonl
func defaultExportPath(tag household.Tag, format string, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}

	name := "all"
	if tag != "" {
		name = SanitizeForFilename(tag.Route())
	}
	filename := fmt.Sprintf("%s-%s.%s", name, now.Format("2006-01-02T150405"), format)
	return filepath.Join(dir, filename), nil
}
