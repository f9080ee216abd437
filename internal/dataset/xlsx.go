package dataset

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
)

type workbookXML struct {
	Sheets []struct {
		Name    string `xml:"name,attr"`
		SheetID int    `xml:"sheetId,attr"`
		RID     string `xml:"id,attr"`
	} `xml:"sheets>sheet"`
}

type relsXML struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// richText is a string item: plain <t> or a sequence of formatted runs.
type richText struct {
	T    string `xml:"t"`
	Runs []struct {
		T string `xml:"t"`
	} `xml:"r"`
}

func (r richText) String() string {
	if len(r.Runs) == 0 {
		return r.T
	}
	var b strings.Builder
	b.WriteString(r.T)
	for _, run := range r.Runs {
		b.WriteString(run.T)
	}
	return b.String()
}

type sharedStringsXML struct {
	Items []richText `xml:"si"`
}

type rowXML struct {
	Num   int `xml:"r,attr"`
	Cells []struct {
		Ref    string   `xml:"r,attr"`
		Type   string   `xml:"t,attr"`
		Value  string   `xml:"v"`
		Inline richText `xml:"is"`
	} `xml:"c"`
}

// xlsxRecords streams <row> elements of one worksheet as records. Rows are
// padded to the header width because spreadsheets omit trailing empty cells.
type xlsxRecords struct {
	dec    *xml.Decoder
	body   io.Closer
	shared []string
	width  int
	line   int
}

// openXLSX resolves the requested sheet. If sheetName is empty and
// sheetIndex <= 0, the first sheet is used. sheetIndex is 1-based.
func openXLSX(file, sheetName string, sheetIndex int) (*xlsxRecords, error) {
	zr, err := zip.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	var wb workbookXML
	var rels relsXML
	var sst sharedStringsXML
	for name, dst := range map[string]any{"xl/workbook.xml": &wb, "xl/_rels/workbook.xml.rels": &rels, "xl/sharedStrings.xml": &sst} {
		if err := decodeZipPart(&zr.Reader, name, dst); err != nil {
			zr.Close()
			return nil, err
		}
	}
	targets := make(map[string]string, len(rels.Rels))
	for _, r := range rels.Rels {
		targets[r.ID] = zipPath(r.Target)
	}

	target := ""
	if sheetName != "" {
		names := make([]string, len(wb.Sheets))
		for i, s := range wb.Sheets {
			names[i] = s.Name
			if target == "" && strings.EqualFold(s.Name, sheetName) {
				target = targets[s.RID]
			}
		}
		if target == "" {
			zr.Close()
			return nil, fmt.Errorf("sheet %q not found; available sheets: %s", sheetName, strings.Join(names, ", "))
		}
	} else {
		idx := max(sheetIndex, 1)
		for _, s := range wb.Sheets {
			if s.SheetID == idx {
				target = targets[s.RID]
				break
			}
		}
		if target == "" {
			target = fmt.Sprintf("xl/worksheets/sheet%d.xml", idx)
		}
	}

	f := findZipPart(&zr.Reader, target)
	if f == nil {
		zr.Close()
		return nil, fmt.Errorf("sheet data %s missing from workbook", target)
	}
	rc, err := f.Open()
	if err != nil {
		zr.Close()
		return nil, fmt.Errorf("open %s: %w", target, err)
	}
	shared := make([]string, len(sst.Items))
	for i, it := range sst.Items {
		shared[i] = it.String()
	}
	return &xlsxRecords{
		dec:    xml.NewDecoder(rc),
		body:   multiCloser{rc, zr},
		shared: shared,
	}, nil
}

func (x *xlsxRecords) Read() ([]string, error) {
	for {
		tok, err := x.dec.Token()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("read sheet: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "row" {
			continue
		}
		var row rowXML
		if err := x.dec.DecodeElement(&row, &se); err != nil {
			return nil, fmt.Errorf("read sheet row: %w", err)
		}
		if row.Num > 0 {
			x.line = row.Num
		} else {
			x.line++
		}
		return x.record(row), nil
	}
}

func (x *xlsxRecords) record(row rowXML) []string {
	rec := make([]string, x.width)
	for i, c := range row.Cells {
		col := i
		if c.Ref != "" {
			if k := columnIndex(c.Ref); k >= 0 {
				col = k
			}
		}
		for len(rec) <= col {
			rec = append(rec, "")
		}
		switch c.Type {
		case "s":
			if k, err := strconv.Atoi(strings.TrimSpace(c.Value)); err == nil && k >= 0 && k < len(x.shared) {
				rec[col] = x.shared[k]
			}
		case "inlineStr":
			rec[col] = c.Inline.String()
		default:
			rec[col] = c.Value
		}
	}
	if x.width == 0 {
		x.width = len(rec)
		return rec
	}
	for len(rec) > x.width && strings.TrimSpace(rec[len(rec)-1]) == "" {
		rec = rec[:len(rec)-1]
	}
	return rec
}

func (x *xlsxRecords) Line() int { return x.line }

func (x *xlsxRecords) Close() error { return x.body.Close() }

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func findZipPart(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// decodeZipPart unmarshals an XML part into dst. A missing part leaves dst
// empty.
func decodeZipPart(zr *zip.Reader, name string, dst any) error {
	f := findZipPart(zr, name)
	if f == nil {
		return nil
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(dst); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// columnIndex maps a cell reference such as "AB12" to a 0-based column.
func columnIndex(ref string) int {
	idx := 0
	for _, c := range strings.ToUpper(ref) {
		if c < 'A' || c > 'Z' {
			break
		}
		idx = idx*26 + int(c-'A'+1)
	}
	return idx - 1
}

// zipPath converts a workbook relationship target to a ZIP entry name.
// Targets are relative to xl/ unless absolute; some writers repeat the xl/
// prefix on relative targets.
func zipPath(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	if strings.HasPrefix(target, "xl/") {
		return path.Clean(target)
	}
	return path.Join("xl", target)
}
