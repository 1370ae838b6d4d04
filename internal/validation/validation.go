package validation

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxDescriptionLength is the longest report description accepted, in characters.
const MaxDescriptionLength = 2000

// AllowedImageTypes are the sniffed content types accepted for report photos.
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// ValidateURL checks if a URL is valid and uses an allowed scheme (http/https only).
// This prevents javascript:, data:, vbscript:, and other dangerous URL schemes.
func ValidateURL(urlStr string) (bool, string) {
	if urlStr == "" {
		return false, "URL is required"
	}

	// Parse the URL
	u, err := url.Parse(urlStr)
	if err != nil {
		return false, "Invalid URL format"
	}

	// Check scheme - only allow http and https
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false, "URL must use http:// or https:// scheme"
	}

	// Ensure host is present
	if u.Host == "" {
		return false, "URL must have a valid host"
	}

	return true, ""
}

// ParseCoordinate parses a latitude or longitude value. NaN and infinities are rejected.
func ParseCoordinate(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ValidateCoordinates checks that lat/lng lie on the globe.
func ValidateCoordinates(lat, lng float64) (bool, string) {
	if lat < -90 || lat > 90 {
		return false, "Latitude must be between -90 and 90"
	}
	if lng < -180 || lng > 180 {
		return false, "Longitude must be between -180 and 180"
	}
	return true, ""
}

// NormalizeDescription trims a description and checks its length.
func NormalizeDescription(desc string) (string, bool, string) {
	desc = strings.TrimSpace(desc)
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return "", false, "Description must be at most 2000 characters"
	}
	return desc, true, ""
}

// DetectImageType sniffs the content type of an uploaded image and reports
// whether it is an accepted photo format. The declared type is ignored.
func DetectImageType(data []byte) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct, AllowedImageTypes[ct]
}
