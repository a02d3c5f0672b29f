package rtt

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/traingraph/traingraph/pkg/timetable"
	"golang.org/x/net/html"
)

// Call is one row of a service detail page - a calling or passing point with
// its working timetable times. Times are time-of-day until NormalizeCallTimes
// joins them onto the run date.
type Call struct {
	Location  string
	Arrival   *time.Time
	Departure *time.Time

	Platform  string
	Cancelled bool
}

type ServiceDetail struct {
	Headcode string
	Operator string
	RunDate  time.Time
	IsBus    bool

	Calls []Call
}

var runDateRegex = regexp.MustCompile(`(\d{1,2})(?:st|nd|rd|th)?\s+([A-Za-z]+)\s+(\d{4})`)

// ParseService parses a single service detail page. One malformed call row
// only produces a diagnostic; missing page metadata (headcode, run date)
// fails the whole document. today anchors relative run dates.
func ParseService(document []byte, today time.Time) (*ServiceDetail, []timetable.Diagnostic, error) {
	root, err := html.Parse(bytes.NewReader(document))
	if err != nil {
		return nil, nil, err
	}

	detail := &ServiceDetail{}

	headcode, err := parseHeadcode(root)
	if err != nil {
		return nil, nil, err
	}
	detail.Headcode = headcode

	runDate, err := parseRunDate(root, today)
	if err != nil {
		return nil, nil, err
	}
	detail.RunDate = runDate

	detail.Operator = parseOperator(root)
	detail.IsBus = findNode(root, func(node *html.Node) bool {
		return nodeHasClass(node, "glyphicons-bus")
	}) != nil

	var diagnostics []timetable.Diagnostic

	walkNodes(root, func(node *html.Node) bool {
		if !nodeHasClass(node, "location") || (!nodeHasClass(node, "call") && !nodeHasClass(node, "pass")) {
			return true
		}

		call, ok := parseCallRow(node)
		if !ok {
			diagnostics = append(diagnostics, timetable.Diagnostic{
				Type:     timetable.DiagnosticSkippedRow,
				Track:    detail.Headcode,
				Location: call.Location,
				Detail:   "unparsable call row",
			})
			return false
		}

		detail.Calls = append(detail.Calls, call)
		return false
	})

	return detail, diagnostics, nil
}

// parseHeadcode pulls the headcode out of the page title, which has the form
// "origin to destination | 1A23 ... | Realtime Trains".
func parseHeadcode(root *html.Node) (string, error) {
	title := findNode(root, func(node *html.Node) bool {
		return node.Data == "title"
	})
	if title == nil {
		return "", errors.New("no title element found")
	}

	segments := strings.Split(nodeText(title), "|")
	if len(segments) < 2 {
		return "", errors.New("headcode not found in title")
	}

	fields := strings.Fields(segments[1])
	if len(fields) == 0 {
		return "", errors.New("headcode not found in title")
	}

	return strings.ToUpper(fields[0]), nil
}

// parseRunDate reads the small element below the page header, which either
// says the service runs today or names a date like "20th August 2025".
func parseRunDate(root *html.Node, today time.Time) (time.Time, error) {
	var small *html.Node
	walkNodes(root, func(node *html.Node) bool {
		if node.Data == "div" && nodeHasClass(node, "header") {
			for sibling := node.NextSibling; sibling != nil; sibling = sibling.NextSibling {
				if sibling.Type == html.ElementNode {
					if sibling.Data == "small" {
						small = sibling
					}
					break
				}
			}
			return false
		}
		return small == nil
	})
	if small == nil {
		return time.Time{}, errors.New("no departure date element found")
	}

	raw := nodeText(small)
	if strings.Contains(strings.ToLower(raw), "today") {
		return time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location()), nil
	}

	match := runDateRegex.FindStringSubmatch(raw)
	if match == nil {
		return time.Time{}, fmt.Errorf("unable to parse departure date from %q", raw)
	}

	parsed, err := time.Parse("2 January 2006", fmt.Sprintf("%s %s %s", match[1], match[2], match[3]))
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse departure date from %q: %w", raw, err)
	}

	return parsed, nil
}

func parseOperator(root *html.Node) string {
	toc := findNode(root, func(node *html.Node) bool {
		return nodeHasClass(node, "toc") && nodeHasClass(node, "h3")
	})
	if toc == nil {
		return "Other"
	}

	inner := findNode(toc, func(node *html.Node) bool {
		return node.Data == "div" && node != toc
	})
	if inner == nil {
		return "Other"
	}

	return nodeText(inner)
}

// parseCallRow reads one location wrapper. The location text is kept verbatim
// including any bracketed qualifier - stripping is the reconciler's job. An
// arrival of "pass" means the service does not stop there.
func parseCallRow(wrapper *html.Node) (Call, bool) {
	call := Call{
		Cancelled: nodeHasClass(wrapper, "cancelled"),
	}

	name := findNode(wrapper, func(node *html.Node) bool {
		return node.Data == "a" && nodeHasClass(node, "name")
	})
	if name == nil {
		return call, false
	}
	call.Location = nodeText(name)

	if platform := findNode(wrapper, func(node *html.Node) bool {
		return nodeHasClass(node, "platform")
	}); platform != nil {
		call.Platform = nodeText(platform)
	}

	wtt := findNode(wrapper, func(node *html.Node) bool {
		return nodeHasClass(node, "wtt")
	})
	if wtt != nil {
		if arrival := findNode(wtt, func(node *html.Node) bool {
			return nodeHasClass(node, "arr")
		}); arrival != nil {
			if text := nodeText(arrival); text != "" && text != "pass" {
				call.Arrival = ParseWTTTime(text)
			}
		}

		if departure := findNode(wtt, func(node *html.Node) bool {
			return nodeHasClass(node, "dep")
		}); departure != nil {
			call.Departure = ParseWTTTime(nodeText(departure))
		}
	}

	if call.Arrival == nil && call.Departure == nil && !call.Cancelled {
		return call, false
	}

	return call, true
}
