package command

import (
	"html"
	"strings"
)

// HelpText renders the help block for one integration: a bold header with
// the module name and description, then one line per action.
func HelpText(moduleName, moduleDesc string, actions []Action) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(moduleName))
	b.WriteString("</b>")
	if moduleDesc != "" {
		b.WriteString(" - ")
		b.WriteString(html.EscapeString(moduleDesc))
	}
	for _, a := range actions {
		b.WriteString("<br><code>")
		b.WriteString(html.EscapeString(a.Name))
		b.WriteString("</code>: ")
		b.WriteString(html.EscapeString(a.Effect))
	}
	return b.String()
}
