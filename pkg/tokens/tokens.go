// Package tokens handles the renderer placeholders (!bbox!, !pixel_width!,
// ...) that tile queries carry until they are executed for a given tile.
//
// Queries containing tokens cannot be planned by the database as-is, so
// introspection replaces them with neutral values first.
package tokens

import "regexp"

// Token names understood by the renderer.
const (
	BBox             = "bbox"
	PixelWidth       = "pixel_width"
	PixelHeight      = "pixel_height"
	ScaleDenominator = "scale_denominator"
)

var tokenPattern = regexp.MustCompile(`!(bbox|pixel_width|pixel_height|scale_denominator)!`)

// Values holds the replacement SQL for each token.
type Values struct {
	BBox             string
	PixelWidth       string
	PixelHeight      string
	ScaleDenominator string
}

// DefaultValues returns values that keep a query plannable without
// restricting the tables it reads.
func DefaultValues() Values {
	return Values{
		BBox:             "ST_MakeEnvelope(0,0,0,0)",
		PixelWidth:       "1",
		PixelHeight:      "1",
		ScaleDenominator: "0",
	}
}

// HasTokens reports whether sql contains any known token.
func HasTokens(sql string) bool {
	return tokenPattern.MatchString(sql)
}

// Find returns the distinct token names present in sql, in order of first
// appearance.
func Find(sql string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range tokenPattern.FindAllStringSubmatch(sql, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Replace substitutes every token in sql with its value.
func Replace(sql string, v Values) string {
	return tokenPattern.ReplaceAllStringFunc(sql, func(match string) string {
		switch match[1 : len(match)-1] {
		case BBox:
			return v.BBox
		case PixelWidth:
			return v.PixelWidth
		case PixelHeight:
			return v.PixelHeight
		case ScaleDenominator:
			return v.ScaleDenominator
		}
		return match
	})
}
