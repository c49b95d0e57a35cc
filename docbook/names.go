package docbook

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/divan/num2words"
)

var (
	reRPMInvalid   = regexp.MustCompile(`[^0-9a-zA-Z _\-.+]+`)
	reSpace        = regexp.MustCompile(`\s`)
	reSpaces       = regexp.MustCompile(`\s+`)
	reUnderscores  = regexp.MustCompile(`__+`)
	reLeadingPunct = regexp.MustCompile(`^[_.-]+`)
	reLeadingNum   = regexp.MustCompile(`^[0-9]+`)
	reIDInvalid    = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_.-]`)
)

// CleanForRPMName leaves only characters allowed in package names, spaces
// become underscores.
func CleanForRPMName(val string, removeDups bool) string {
	if len(val) == 0 {
		return val
	}
	res := reRPMInvalid.ReplaceAllString(strings.ReplaceAll(val, "\u00a0", " "), "")
	res = reSpace.ReplaceAllString(res, "_")
	if removeDups {
		res = reUnderscores.ReplaceAllString(res, "_")
	}
	return res
}

// URLSlug is CleanForRPMName with duplicate underscores collapsed and no
// leading dots, so slug never looks like a hidden file.
func URLSlug(val string) string {
	return strings.TrimLeft(CleanForRPMName(val, true), ".")
}

// CreateXMLID converts arbitrary text into a valid XML id. Leading number is
// spelled in English words, "121" becomes "one hundred and twenty-one".
func CreateXMLID(val string) string {
	id := reSpaces.ReplaceAllString(val, "_")
	id = reLeadingPunct.ReplaceAllString(id, "")
	id = reLeadingNum.ReplaceAllStringFunc(id, func(num string) string {
		n, err := strconv.Atoi(num)
		if err != nil {
			// too long to spell
			return num
		}
		return num2words.ConvertAnd(n)
	})
	return reIDInvalid.ReplaceAllString(id, "")
}

// DocID builds natural document id "Product-Version-Title-Lang".
func DocID(npv NPV, lang string) string {
	return fmt.Sprintf("%s-%s-%s-%s",
		CleanForRPMName(npv.Product, false),
		CleanForRPMName(npv.Version, false),
		CleanForRPMName(npv.Title, false),
		lang)
}
