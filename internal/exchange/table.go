package exchange

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"bulk-deal-tracker/internal/normalize"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultMinColumns is the smallest header width accepted as a deals table.
// Report pages also carry layout and navigation tables of three columns or
// fewer, so a data table must have more than three.
const DefaultMinColumns = 4

// ErrNoTable is returned when a payload holds no table wide enough to be
// deal data.
var ErrNoTable = errors.New("no data table found")

// ParseTable extracts the deals table from an HTML page or a CSV payload.
// Payloads whose first non-blank byte is '<' are treated as HTML.
func ParseTable(body []byte, minColumns int) (*normalize.Table, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n\ufeff")
	if len(trimmed) == 0 {
		return nil, ErrEmptyResponse
	}

	if trimmed[0] == '<' {
		tables, err := ParseHTMLTables(bytes.NewReader(trimmed))
		if err != nil {
			return nil, err
		}
		return SelectTable(tables, minColumns)
	}

	t, err := parseCSV(trimmed)
	if err != nil {
		return nil, err
	}
	return SelectTable([]*normalize.Table{t}, minColumns)
}

// SelectTable returns the first table, in document order, whose header has
// at least minColumns columns.
func SelectTable(tables []*normalize.Table, minColumns int) (*normalize.Table, error) {
	for _, t := range tables {
		if t != nil && len(t.Headers) >= minColumns {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w among %d candidate(s) with at least %d columns", ErrNoTable, len(tables), minColumns)
}

// ParseHTMLTables returns every <table> in the document in document order.
// Rows of a nested table belong to the nested table only.
func ParseHTMLTables(r io.Reader) ([]*normalize.Table, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	var tables []*normalize.Table
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Table {
			tables = append(tables, extractTable(n))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return tables, nil
}

// extractTable uses the first row containing <th> cells as the header, or the
// first row when there are none. Rows above the header are dropped.
func extractTable(table *html.Node) *normalize.Table {
	var rows [][]string
	headerAt := -1

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Table:
				// nested tables are collected separately
			case atom.Tr:
				cells, hasTH := rowCells(c)
				if hasTH && headerAt < 0 {
					headerAt = len(rows)
				}
				rows = append(rows, cells)
			default:
				walk(c)
			}
		}
	}
	walk(table)

	t := &normalize.Table{}
	if len(rows) == 0 {
		return t
	}
	if headerAt < 0 {
		headerAt = 0
	}
	t.Headers = rows[headerAt]
	t.Rows = rows[headerAt+1:]
	return t
}

func rowCells(tr *html.Node) (cells []string, hasTH bool) {
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Th:
			hasTH = true
			cells = append(cells, nodeText(c))
		case atom.Td:
			cells = append(cells, nodeText(c))
		}
	}
	return cells, hasTH
}

// nodeText concatenates the text below n with whitespace collapsed.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func parseCSV(body []byte) (*normalize.Table, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyResponse
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}
	return &normalize.Table{Headers: headers, Rows: records[1:]}, nil
}
