package dataset

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/textprep/prep/hub"

	_ "github.com/tursodatabase/go-libsql"
)

// TrainSplit and ValidationSplit are the split names the preparation
// pipeline keys on.
const (
	TrainSplit      = "train"
	ValidationSplit = "validation"
)

// hubSplitFiles are the per-split files fetched, in order, when loading a
// dataset by hub identifier. Only the train split is mandatory.
var hubSplitFiles = []struct {
	split string
	file  string
}{
	{TrainSplit, "train.jsonl"},
	{ValidationSplit, "validation.jsonl"},
}

// Load resolves a dataset identifier and returns its splits. Supported
// identifiers:
//   - a local directory holding <split>.jsonl/.json/.csv/.txt files
//   - a single local file (loaded as the "train" split)
//   - a local sqlite/libsql database (one split per table)
//   - an http(s) URL (downloaded into cacheDir, then loaded)
//   - a hub dataset id such as "owner/name" (train.jsonl fetched,
//     validation.jsonl when available)
func Load(ctx context.Context, identifier, cacheDir string) (*Dataset, error) {
	if strings.TrimSpace(identifier) == "" {
		return nil, fmt.Errorf("dataset identifier cannot be empty")
	}

	if strings.HasPrefix(identifier, "http://") || strings.HasPrefix(identifier, "https://") {
		local, err := hub.DownloadURL(ctx, identifier, cacheDir)
		if err != nil {
			return nil, err
		}
		return loadPath(ctx, local)
	}

	if info, err := os.Stat(identifier); err == nil {
		if info.IsDir() {
			return loadDir(ctx, identifier)
		}
		return loadPath(ctx, identifier)
	}

	return loadHub(ctx, identifier, cacheDir)
}

func loadPath(ctx context.Context, path string) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return loadSQLite(ctx, path)
	default:
		split, err := loadSplitFile(path, TrainSplit)
		if err != nil {
			return nil, err
		}
		ds := New()
		ds.SetSplit(split)
		return ds, nil
	}
}

func loadDir(ctx context.Context, dir string) (*Dataset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset directory %s: %w", dir, err)
	}

	ds := New()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		switch ext {
		case ".jsonl", ".json", ".csv", ".txt":
		default:
			continue
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		split, err := loadSplitFile(filepath.Join(dir, entry.Name()), name)
		if err != nil {
			return nil, err
		}
		ds.SetSplit(split)
	}

	if len(ds.splits) == 0 {
		return nil, fmt.Errorf("no dataset files found in %s", dir)
	}
	return ds, nil
}

func loadHub(ctx context.Context, identifier, cacheDir string) (*Dataset, error) {
	ds := New()
	for _, sf := range hubSplitFiles {
		local, err := hub.DatasetPath(ctx, identifier, sf.file, cacheDir)
		if err != nil {
			// An absent optional split is normal; anything else (network,
			// server error) must not silently produce a smaller dataset.
			if sf.split != TrainSplit && errors.Is(err, hub.ErrNotFound) {
				slog.Debug("Optional split not available", "dataset", identifier, "split", sf.split)
				continue
			}
			return nil, fmt.Errorf("failed to fetch %s for dataset %s: %w", sf.file, identifier, err)
		}
		split, err := loadSplitFile(local, sf.split)
		if err != nil {
			return nil, err
		}
		ds.SetSplit(split)
	}
	return ds, nil
}

func loadSplitFile(path, splitName string) (*Split, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl":
		return loadJSONL(f, splitName, path)
	case ".json":
		return loadJSON(f, splitName, path)
	case ".csv":
		return loadCSV(f, splitName, path)
	case ".txt":
		return loadText(f, splitName)
	default:
		return nil, fmt.Errorf("unsupported dataset file format: %s", path)
	}
}

func loadJSONL(r io.Reader, splitName, path string) (*Split, error) {
	split := &Split{Name: splitName}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("invalid JSON on line %d of %s: %w", lineNo, path, err)
		}
		if split.Columns == nil {
			cols, err := orderedKeys([]byte(line))
			if err != nil {
				return nil, fmt.Errorf("invalid JSON on line %d of %s: %w", lineNo, path, err)
			}
			split.Columns = cols
		}
		split.Records = append(split.Records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return split, nil
}

func loadJSON(r io.Reader, splitName, path string) (*Split, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%s is not a JSON array of records: %w", path, err)
	}
	split := &Split{Name: splitName, Records: records}
	if len(records) > 0 {
		cols, err := orderedKeysFromArray(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to derive column order from %s: %w", path, err)
		}
		split.Columns = cols
	}
	return split, nil
}

func loadCSV(r io.Reader, splitName, path string) (*Split, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header of %s: %w", path, err)
	}

	split := &Split{Name: splitName, Columns: append([]string(nil), header...)}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row in %s: %w", path, err)
		}
		rec := make(Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = inferCSVValue(row[i])
			}
		}
		split.Records = append(split.Records, rec)
	}
	return split, nil
}

// inferCSVValue types a CSV cell the way the other loaders do naturally:
// integers and floats come back as numbers, everything else stays a string.
// Without this, numeric id columns would masquerade as string columns and
// win the text-column fallback.
func inferCSVValue(cell string) any {
	if cell == "" {
		return cell
	}
	if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	return cell
}

// loadText treats each line of a plain-text file as one record with a single
// "text" column, the wikitext-style layout.
func loadText(r io.Reader, splitName string) (*Split, error) {
	split := &Split{Name: splitName, Columns: []string{"text"}}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	for scanner.Scan() {
		split.Records = append(split.Records, Record{"text": scanner.Text()})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read text file: %w", err)
	}
	return split, nil
}

// loadSQLite reads every user table of a sqlite/libsql database as a split.
// A database with a single table is loaded as the "train" split regardless
// of the table name.
func loadSQLite(ctx context.Context, path string) (*Dataset, error) {
	db, err := sql.Open("libsql", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables in %s: %w", path, err)
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to list tables in %s: %w", path, err)
	}
	rows.Close()

	if len(tables) == 0 {
		return nil, fmt.Errorf("database %s contains no tables", path)
	}

	ds := New()
	for _, table := range tables {
		splitName := table
		if len(tables) == 1 {
			splitName = TrainSplit
		}
		split, err := loadTable(ctx, db, table, splitName)
		if err != nil {
			return nil, err
		}
		ds.SetSplit(split)
	}
	return ds, nil
}

// quoteIdent escapes a SQL identifier by doubling embedded double quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func loadTable(ctx context.Context, db *sql.DB, table, splitName string) (*Split, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of table %s: %w", table, err)
	}

	split := &Split{Name: splitName, Columns: append([]string(nil), cols...)}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row of table %s: %w", table, err)
		}
		rec := make(Record, len(cols))
		for i, col := range cols {
			switch v := values[i].(type) {
			case []byte:
				rec[col] = string(v)
			default:
				rec[col] = v
			}
		}
		split.Records = append(split.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate table %s: %w", table, err)
	}
	return split, nil
}

// orderedKeys extracts top-level object keys in their declared order, which
// json.Unmarshal into a map discards.
func orderedKeys(obj []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(obj))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		keys = append(keys, key)
		if err := skipValue(dec); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); ok && (d == '{' || d == '[') {
		depth := 1
		for depth > 0 {
			tok, err = dec.Token()
			if err != nil {
				return err
			}
			if d, ok := tok.(json.Delim); ok {
				switch d {
				case '{', '[':
					depth++
				case '}', ']':
					depth--
				}
			}
		}
	}
	return nil
}

// orderedKeysFromArray extracts the key order of the first object of a JSON
// array document.
func orderedKeysFromArray(doc []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("expected JSON array, got %v", tok)
	}
	if !dec.More() {
		return nil, nil
	}
	var first json.RawMessage
	if err := dec.Decode(&first); err != nil {
		return nil, err
	}
	return orderedKeys(first)
}
