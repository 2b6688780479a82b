package providers

import (
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/i474232898/weather-diary/internal/common"
	"github.com/i474232898/weather-diary/internal/weather"
)

// Column positions of the diary table.
const (
	cellDay             = 0
	cellTempMorning     = 1
	cellPressureMorning = 2
	cellWindMorning     = 5
	cellTempEvening     = 6
	cellPressureEvening = 7
	cellWindEvening     = 10

	minDiaryCells = cellWindEvening + 1
)

// ExtractDiary reads the records of the first table body in a diary page.
// A page without a table yields no records; rows that do not look like a
// diary day are skipped.
func ExtractDiary(r io.Reader, m weather.Month) ([]weather.DiaryRecord, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	table := findFirst(doc, atom.Table)
	if table == nil {
		return nil, nil
	}
	tbody := findFirst(table, atom.Tbody)
	if tbody == nil {
		return nil, nil
	}

	var records []weather.DiaryRecord
	for tr := tbody.FirstChild; tr != nil; tr = tr.NextSibling {
		if tr.Type != html.ElementNode || tr.DataAtom != atom.Tr {
			continue
		}

		var cells []string
		for td := tr.FirstChild; td != nil; td = td.NextSibling {
			if td.Type == html.ElementNode && td.DataAtom == atom.Td {
				cells = append(cells, common.CleanText(textContent(td)))
			}
		}
		if len(cells) < minDiaryCells {
			continue
		}

		day, err := strconv.Atoi(cells[cellDay])
		if err != nil || day < 1 || day > 31 {
			continue
		}
		date := m.Day(day)
		if date.Month() != m.Month {
			continue
		}

		records = append(records, weather.DiaryRecord{
			Date:            date,
			TempMorning:     cells[cellTempMorning],
			PressureMorning: cells[cellPressureMorning],
			WindMorning:     cells[cellWindMorning],
			TempEvening:     cells[cellTempEvening],
			PressureEvening: cells[cellPressureEvening],
			WindEvening:     cells[cellWindEvening],
		})
	}

	return records, nil
}

// findFirst returns the first element of type a below n in document order.
func findFirst(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
