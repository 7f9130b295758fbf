// Package schemas embeds the JSON schemas the pipeline validates its
// output against.
package schemas

import _ "embed"

// ForecastOutput is the JSON schema for one forecast output row
//
//go:embed forecast_output.json
var ForecastOutput string
