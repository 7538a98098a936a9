package application

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ahrav/go-tripcheck/internal/domain"
)

// Item pairs a query with the raw plan produced for it. A nil Plan means
// no plan file existed.
type Item struct {
	Query domain.Query
	Plan  []byte
}

// Batch is an ordered set of items. The order is the canonical row order
// of every matrix in the report.
type Batch struct {
	Items []Item
}

// IDs returns the query ids in canonical order.
func (b Batch) IDs() []string {
	out := make([]string, len(b.Items))
	for i, it := range b.Items {
		out[i] = it.Query.UID
	}
	return out
}

// LoadBatch reads queries from querySrc and their plans from planDir.
//
// querySrc is either a directory of <uid>.json query files, read in uid
// order, or a file holding one query per line or a JSON array of queries,
// read in file order. When ids is non-empty only those queries are kept,
// in the order given; an id with no query is an error.
//
// The plan of query uid is planDir/<uid>.json. A missing plan file yields
// an empty plan, which fails schema validation; it is not an error.
func LoadBatch(querySrc, planDir string, ids []string) (Batch, error) {
	queries, err := LoadQueries(querySrc)
	if err != nil {
		return Batch{}, err
	}
	if len(ids) > 0 {
		if queries, err = selectQueries(queries, ids); err != nil {
			return Batch{}, err
		}
	}

	b := Batch{Items: make([]Item, len(queries))}
	for i, q := range queries {
		plan, err := readPlan(planDir, q.UID)
		if err != nil {
			return Batch{}, err
		}
		b.Items[i] = Item{Query: q, Plan: plan}
	}
	return b, nil
}

// LoadQueries reads every query from a directory or a file.
func LoadQueries(src string) ([]domain.Query, error) {
	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read queries: %w", err)
	}
	var queries []domain.Query
	if info.IsDir() {
		queries, err = readQueryDir(src)
	} else {
		queries, err = readQueryFile(src)
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(queries))
	for _, q := range queries {
		if seen[q.UID] {
			return nil, fmt.Errorf("%w: duplicate query uid %q", domain.ErrMalformedInput, q.UID)
		}
		seen[q.UID] = true
	}
	return queries, nil
}

func readQueryDir(dir string) ([]domain.Query, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read query directory: %w", err)
	}
	var out []domain.Query
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read query %s: %w", e.Name(), err)
		}
		q, err := domain.DecodeQuery(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func readQueryFile(path string) ([]domain.Query, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("%w: query file: %v", domain.ErrMalformedInput, err)
		}
		out := make([]domain.Query, 0, len(raw))
		for i, r := range raw {
			q, err := domain.DecodeQuery(r)
			if err != nil {
				return nil, fmt.Errorf("query %d: %w", i, err)
			}
			out = append(out, q)
		}
		return out, nil
	}

	var out []domain.Query
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		q, err := domain.DecodeQuery([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, q)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan query file: %w", err)
	}
	return out, nil
}

func selectQueries(queries []domain.Query, ids []string) ([]domain.Query, error) {
	byID := make(map[string]domain.Query, len(queries))
	for _, q := range queries {
		byID[q.UID] = q
	}
	out := make([]domain.Query, 0, len(ids))
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownQuery, id)
		}
		out = append(out, q)
	}
	return out, nil
}

// readPlan returns nil for a missing plan file.
func readPlan(dir, uid string) ([]byte, error) {
	if dir == "" || strings.ContainsAny(uid, `/\`) {
		return nil, nil
	}
	data, err := os.ReadFile(filepath.Join(dir, uid+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read plan %s: %w", uid, err)
	}
	return data, nil
}
