package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// ValidatorFunc checks a non-nil attribute value of the declared type.
type ValidatorFunc func(v any) error

// DefaultProtocol is prepended to scheme-less link targets.
const DefaultProtocol = "https"

// AllowedProtocols are the URI schemes accepted by the uri validator.
var AllowedProtocols = []string{"http", "https", "ftp", "ftps", "mailto", "tel", "callto", "sms", "cid", "xmpp"}

// ErrInvalidURI is returned for link targets that are not acceptable URIs.
var ErrInvalidURI = errors.New("invalid URI")

func builtinValidators() map[string]ValidatorFunc {
	return map[string]ValidatorFunc{
		"headingLevel":   validateHeadingLevel,
		"uri":            validateURI,
		"color":          validateColor,
		"positiveInt":    validatePositiveInt,
		"nonNegativeInt": validateNonNegativeInt,
		"textAlign":      validateTextAlign,
		"columnWidths":   validateColumnWidths,
	}
}

func validateHeadingLevel(v any) error {
	n, ok := v.(int)
	if !ok || n < 1 || n > 6 {
		return fmt.Errorf("heading level must be 1..6")
	}
	return nil
}

func validatePositiveInt(v any) error {
	if n, ok := v.(int); !ok || n < 1 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

func validateNonNegativeInt(v any) error {
	if n, ok := v.(int); !ok || n < 0 {
		return fmt.Errorf("must be a non-negative integer")
	}
	return nil
}

func validateTextAlign(v any) error {
	switch v {
	case "left", "center", "right", "justify":
		return nil
	}
	return fmt.Errorf("must be left, center, right or justify")
}

func validateColumnWidths(v any) error {
	list, ok := v.([]any)
	if !ok {
		return fmt.Errorf("must be a list of widths")
	}
	for _, item := range list {
		switch w := item.(type) {
		case int:
			if w < 0 {
				return fmt.Errorf("width must not be negative")
			}
		case float64:
			if w < 0 {
				return fmt.Errorf("width must not be negative")
			}
		default:
			return fmt.Errorf("width must be a number")
		}
	}
	return nil
}

func validateURI(v any) error {
	s, ok := v.(string)
	if !ok {
		return ErrInvalidURI
	}
	_, err := checkURI(s)
	return err
}

func checkURI(s string) (*url.URL, error) {
	if strings.TrimSpace(s) != s || s == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURI, s)
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	if !allowedProtocol(u.Scheme) {
		return nil, fmt.Errorf("%w: scheme %q not allowed", ErrInvalidURI, u.Scheme)
	}
	switch u.Scheme {
	case "http", "https", "ftp", "ftps":
		if u.Host == "" {
			return nil, fmt.Errorf("%w: missing host", ErrInvalidURI)
		}
	default:
		if u.Opaque == "" && u.Host == "" && u.Path == "" {
			return nil, fmt.Errorf("%w: empty %s target", ErrInvalidURI, u.Scheme)
		}
	}
	return u, nil
}

func allowedProtocol(scheme string) bool {
	scheme = strings.ToLower(scheme)
	for _, p := range AllowedProtocols {
		if p == scheme {
			return true
		}
	}
	return false
}

// NormalizeURI trims raw, prefixes DefaultProtocol when it carries no
// allowed scheme, and validates the result.
func NormalizeURI(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURI)
	}
	if i := strings.Index(s, ":"); i < 0 || !allowedProtocol(s[:i]) {
		s = DefaultProtocol + "://" + strings.TrimPrefix(s, "//")
	}
	if _, err := checkURI(s); err != nil {
		return "", err
	}
	return s, nil
}

var rgbPattern = regexp.MustCompile(`^rgba?\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})\s*(?:,\s*(?:0|1|0?\.\d+|1\.0+)\s*)?\)$`)

func validateColor(v any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("color must be a string")
	}
	_, err := ParseColor(s)
	return err
}

// ParseColor accepts #rgb and #rrggbb hex, rgb()/rgba() and CSS color names.
func ParseColor(s string) (colorful.Color, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		c, err := colorful.Hex(strings.ToLower(s))
		if err != nil {
			return colorful.Color{}, fmt.Errorf("invalid hex color %q", s)
		}
		return c, nil
	}
	if m := rgbPattern.FindStringSubmatch(strings.ToLower(s)); m != nil {
		var ch [3]float64
		for i := 0; i < 3; i++ {
			n, _ := strconv.Atoi(m[i+1])
			if n > 255 {
				return colorful.Color{}, fmt.Errorf("color channel %d out of range", n)
			}
			ch[i] = float64(n) / 255
		}
		return colorful.Color{R: ch[0], G: ch[1], B: ch[2]}, nil
	}
	if tc, ok := tcell.ColorNames[strings.ToLower(s)]; ok {
		r, g, b := tc.RGB()
		if r < 0 || g < 0 || b < 0 {
			return colorful.Color{}, fmt.Errorf("unknown color %q", s)
		}
		return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}, nil
	}
	return colorful.Color{}, fmt.Errorf("unknown color %q", s)
}
