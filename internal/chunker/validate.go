package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/docrag/internal/domain"
)

// Validation thresholds. Lengths are compact: whitespace is ignored.
const (
	sectionMinBodyLen = 20
	docMinLen         = 200
)

// ValidateMarkdown checks one document against the ingest rules. Missing
// required metadata fields are hard reasons; structural findings (short
// sections, duplicate headers, ordering problems) are warnings only.
func ValidateMarkdown(source, text string, meta domain.ChunkMetadata) domain.ValidationReport {
	reasons := []string{}
	warnings := []string{}

	required := []struct{ field, value string }{
		{"source", meta.Source},
		{"country", meta.Country},
		{"doc_type", meta.DocType},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			reasons = append(reasons, fmt.Sprintf("%s: missing metadata `%s`", source, f.field))
		}
	}

	if compactLen(strings.TrimSpace(text)) < docMinLen {
		warnings = append(warnings,
			fmt.Sprintf("%s: document length is under recommended %d chars", source, docMinLen))
	}

	warnings = append(warnings, headerWarnings(source, text)...)

	return domain.ValidationReport{
		Source:   source,
		Usable:   len(reasons) == 0,
		Reasons:  reasons,
		Warnings: warnings,
	}
}

type headerPos struct {
	line  int
	level int
	title string
}

func headerWarnings(source, text string) []string {
	var warnings []string
	lines := strings.Split(text, "\n")

	var headers []headerPos
	var seenH2, seenH3 string
	haveH2, haveH3 := false, false
	seenKeys := make(map[string]bool)

	for idx, raw := range lines {
		m := headerRe.FindStringSubmatch(strings.TrimSpace(raw))
		if m == nil {
			continue
		}

		level := len(m[1])
		title := strings.TrimSpace(m[2])
		if utf8.RuneCountInString(title) < 2 {
			warnings = append(warnings, fmt.Sprintf("%s: short header title '%s'", source, title))
		}

		var parentH2, parentH3 string
		switch level {
		case 2:
			seenH2, haveH2 = title, true
			seenH3, haveH3 = "", false
		case 3:
			if !haveH2 {
				warnings = append(warnings,
					fmt.Sprintf("%s: '### %s' appears before any '##' section", source, title))
			}
			parentH2 = seenH2
			seenH3, haveH3 = title, true
		case 4:
			if !haveH3 {
				warnings = append(warnings,
					fmt.Sprintf("%s: '#### %s' appears before any '###' section", source, title))
			}
			parentH2, parentH3 = seenH2, seenH3
		}

		key := fmt.Sprintf("%d\x00%s\x00%s\x00%s", level, parentH2, parentH3, strings.ToLower(title))
		if seenKeys[key] {
			warnings = append(warnings,
				fmt.Sprintf("%s: duplicated header '%s' at level h%d", source, title, level))
		}
		seenKeys[key] = true
		headers = append(headers, headerPos{line: idx, level: level, title: title})
	}

	switch {
	case len(headers) == 0:
		warnings = append(warnings, fmt.Sprintf("%s: no allowed headers(##/###/####) found", source))
	case headers[0].level != 2:
		warnings = append(warnings, fmt.Sprintf("%s: first section should start with '##'", source))
	}

	for i, h := range headers {
		end := len(lines)
		if i+1 < len(headers) {
			end = headers[i+1].line
		}
		body := strings.TrimSpace(strings.Join(lines[h.line+1:end], "\n"))
		if compactLen(body) < sectionMinBodyLen {
			warnings = append(warnings,
				fmt.Sprintf("%s: section '%s' body is under recommended %d chars", source, h.title, sectionMinBodyLen))
		}
	}

	return warnings
}

// ValidateDocuments validates a batch, one report per document, in order.
func ValidateDocuments(docs []domain.Document) []domain.ValidationReport {
	reports := make([]domain.ValidationReport, len(docs))
	for i, doc := range docs {
		source := doc.Metadata.Source
		if source == "" {
			source = "unknown"
		}
		reports[i] = ValidateMarkdown(source, doc.Content, doc.Metadata)
	}
	return reports
}

// Summarize aggregates reports into the counts returned by reindex.
func Summarize(reports []domain.ValidationReport) domain.ValidationSummary {
	summary := domain.ValidationSummary{
		TotalDocs: len(reports),
		Rejected:  []domain.RejectedDoc{},
	}
	for _, r := range reports {
		if r.Usable {
			summary.UsableDocs++
		} else {
			summary.Rejected = append(summary.Rejected, domain.RejectedDoc{
				Source:  r.Source,
				Reasons: r.Reasons,
			})
		}
		if len(r.Warnings) > 0 {
			summary.WarningDocs++
		}
	}
	summary.RejectedDocs = len(summary.Rejected)
	if summary.TotalDocs > 0 {
		ratio := float64(summary.UsableDocs) / float64(summary.TotalDocs)
		summary.UsableRatio = float64(int(ratio*10000+0.5)) / 10000
	}
	summary.SummaryText = fmt.Sprintf(
		"total=%d, usable=%d, rejected=%d, warnings=%d, usable_ratio=%.2f%%",
		summary.TotalDocs, summary.UsableDocs, summary.RejectedDocs,
		summary.WarningDocs, summary.UsableRatio*100)
	return summary
}

// compactLen counts non-whitespace runes.
func compactLen(text string) int {
	n := 0
	for _, r := range text {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f':
		default:
			n++
		}
	}
	return n
}
