package tfcli

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
)

// parseWorkspaces parses "tf workspaces -format:brief" output.
// Format:
//
//	Collection: http://tfs:8080/tfs/DefaultCollection
//	Workspace      Owner         Computer Comment
//	-------------- ------------- -------- --------------------
//	Hudson-job-n1  CORP\builder  BUILD01  Created by Jenkins
//
// Columns are cut at the dash runs of the separator line; the last column
// runs to the end of the line.
func parseWorkspaces(output string) []domain.WorkspaceRef {
	var (
		refs  []domain.WorkspaceRef
		spans [][2]int
	)
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r ")
		if spans == nil {
			if isColumnSeparator(line) {
				spans = columnSpans(line)
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "Collection:") {
			// A new table for another collection follows
			spans = nil
			continue
		}
		cols := cutColumns(line, spans)
		if cols[0] == "" {
			continue
		}
		ref := domain.WorkspaceRef{Name: cols[0]}
		if len(cols) > 1 {
			ref.Owner = cols[1]
		}
		if len(cols) > 2 {
			ref.Computer = cols[2]
		}
		if len(cols) > 3 {
			ref.Comment = cols[3]
		}
		refs = append(refs, ref)
	}
	return refs
}

func isColumnSeparator(line string) bool {
	if !strings.Contains(line, "---") {
		return false
	}
	return strings.Trim(line, "- ") == ""
}

// columnSpans returns [start, end) of each dash run.
func columnSpans(sep string) [][2]int {
	var spans [][2]int
	start := -1
	for i, r := range sep {
		switch {
		case r == '-' && start < 0:
			start = i
		case r != '-' && start >= 0:
			spans = append(spans, [2]int{start, i})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, [2]int{start, len(sep)})
	}
	return spans
}

func cutColumns(line string, spans [][2]int) []string {
	cols := make([]string, len(spans))
	for i, sp := range spans {
		if sp[0] >= len(line) {
			break
		}
		end := sp[1]
		if i == len(spans)-1 || end > len(line) {
			end = len(line)
		}
		cols[i] = strings.TrimSpace(line[sp[0]:end])
	}
	return cols
}

// parseWorkfoldOwner extracts the workspace name from "tf workfold" output.
// Format:
//
//	===============================================================================
//	Workspace : Hudson-job-n1 (CORP\builder)
//	Collection: http://tfs:8080/tfs/DefaultCollection
//	 $/Project: /work/job
func parseWorkfoldOwner(output string) (string, bool) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, found := strings.Cut(line, ":")
		if !found || strings.TrimSpace(key) != "Workspace" {
			continue
		}
		name := strings.TrimSpace(value)
		if i := strings.LastIndex(name, " ("); i > 0 && strings.HasSuffix(name, ")") {
			name = name[:i]
		}
		return name, name != ""
	}
	return "", false
}

// historyDateLayouts are the date forms "tf history -format:detailed" is
// known to print, depending on client version and locale.
var historyDateLayouts = []string{
	time.RFC3339,
	"Monday, January 2, 2006 3:04:05 PM",
	"Monday, January 2, 2006 15:04:05",
	"January 2, 2006 3:04:05 PM",
	"Jan 2, 2006 3:04:05 PM",
	"Jan 2, 2006, 3:04:05 PM",
	"1/2/2006 3:04:05 PM",
	"2006-01-02 15:04:05",
	"02.01.2006 15:04:05",
}

func parseHistoryDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range historyDateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized changeset date %q", s)
}

type historySection int

const (
	sectionHeader historySection = iota
	sectionComment
	sectionItems
	sectionOther
)

// parseHistory parses "tf history -format:detailed" output.
// Format:
//
//	-----------------------------------------------------------------------
//	Changeset: 1042
//	User: CORP\alice
//	Date: Thursday, September 24, 2009 12:30:15 PM
//
//	Comment:
//	  Fix the build
//
//	Items:
//	  edit $/Project/src/main.c
//
//	Check-in Notes:
//	  Code Reviewer:
func parseHistory(output string, loc *time.Location) ([]domain.ChangeSet, error) {
	var (
		changes []domain.ChangeSet
		current *domain.ChangeSet
		comment []string
		section historySection
	)
	flush := func() {
		if current == nil {
			return
		}
		current.Comment = strings.TrimSpace(strings.Join(comment, "\n"))
		changes = append(changes, *current)
		current, comment = nil, nil
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := strings.TrimRight(scanner.Text(), "\r")
		line := strings.TrimSpace(raw)

		if isChangesetSeparator(line) {
			flush()
			section = sectionHeader
			continue
		}
		indented := strings.HasPrefix(raw, " ") || strings.HasPrefix(raw, "\t")

		switch {
		case !indented && strings.HasPrefix(line, "Changeset:"):
			flush()
			current = &domain.ChangeSet{Version: strings.TrimSpace(strings.TrimPrefix(line, "Changeset:"))}
			section = sectionHeader
		case current == nil:
			continue
		case !indented && strings.HasPrefix(line, "User:"):
			current.User, current.Domain = domain.ParseUser(strings.TrimSpace(strings.TrimPrefix(line, "User:")))
		case !indented && strings.HasPrefix(line, "Date:"):
			date, err := parseHistoryDate(strings.TrimPrefix(line, "Date:"), loc)
			if err != nil {
				return nil, fmt.Errorf("changeset %s: %w", current.Version, err)
			}
			current.Date = date
		case !indented && line == "Comment:":
			section = sectionComment
		case !indented && line == "Items:":
			section = sectionItems
		case !indented && strings.HasSuffix(line, ":"):
			section = sectionOther
		case section == sectionComment:
			comment = append(comment, line)
		case section == sectionItems && line != "":
			if item, ok := parseHistoryItem(line); ok {
				current.Items = append(current.Items, item)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse history: %w", err)
	}
	flush()
	return changes, nil
}

func isChangesetSeparator(line string) bool {
	return len(line) >= 10 && strings.Trim(line, "-") == ""
}

// parseHistoryItem parses "edit $/Project/a.c" or "add, edit $/Project/a.c".
// The first listed change type is kept.
func parseHistoryItem(line string) (domain.ChangeItem, bool) {
	i := strings.Index(line, domain.ServerPathRoot)
	if i < 0 {
		return domain.ChangeItem{}, false
	}
	action := strings.TrimSpace(line[:i])
	if first, _, found := strings.Cut(action, ","); found {
		action = strings.TrimSpace(first)
	}
	return domain.ChangeItem{
		Path:   strings.TrimSpace(line[i:]),
		Action: domain.ChangeAction(strings.ToLower(action)),
	}, true
}
