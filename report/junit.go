package report

import (
	"fmt"
	"strings"
)

const suiteName = "openapi-validator-proxy"

// RenderJUnit renders the current snapshot of the store as a JUnit-XML
// document of shape:
//
//	<testsuites tests="T" failures="F">
//	  <testsuite name="..." tests="T" failures="F">
//	    <testcase name="..." time="...">
//	      <failure type="..." message="..."/>
//	      <system-out>...</system-out>
//	    </testcase>
//	  </testsuite>
//	</testsuites>
//
// Two consecutive calls with no intervening Append produce
// byte-identical output: rendering is a pure function of the
// snapshot, and the snapshot itself never mutates testcases in place.
func (s *Store) RenderJUnit() string {
	testcases := s.snapshot()

	var failures int
	for _, tc := range testcases {
		if tc.Outcome.Failed {
			failures++
		}
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&b, `<testsuites tests="%d" failures="%d">`+"\n", len(testcases), failures)
	fmt.Fprintf(&b, `  <testsuite name="%s" tests="%d" failures="%d">`+"\n",
		xmlEscape(suiteName), len(testcases), failures)

	for _, tc := range testcases {
		renderTestcase(&b, tc)
	}

	b.WriteString("  </testsuite>\n")
	b.WriteString("</testsuites>\n")

	return b.String()
}

func renderTestcase(b *strings.Builder, tc Testcase) {
	fmt.Fprintf(b, `    <testcase name="%s" time="%f">`+"\n",
		xmlEscape(tc.Name), tc.ElapsedSeconds)

	if tc.Outcome.Failed {
		fmt.Fprintf(b, `      <failure type="%s" message="%s"/>`+"\n",
			xmlEscape(string(tc.Outcome.Kind)), xmlEscape(tc.Outcome.Message))
	}

	if len(tc.Properties) > 0 {
		b.WriteString("      <system-out>\n")
		for _, p := range tc.Properties {
			line := fmt.Sprintf("%s=%s", p.Key, p.Value)
			fmt.Fprintf(b, "[[PROPERTY|%s]]\n", xmlEscape(line))
			fmt.Fprintf(b, "%s\n", xmlEscape(line))
		}
		b.WriteString("      </system-out>\n")
	}

	b.WriteString("    </testcase>\n")
}

// xmlEscape escapes the five XML-significant characters for safe
// inclusion in both attribute values and element text.
func xmlEscape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&apos;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
