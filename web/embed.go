// Package web holds the embedded widget page served at the root route.
package web

import _ "embed"

//go:embed widget.html
var WidgetHTML string
