// Package validate checks resolved DocBook document for problems which make
// feed unusable: duplicate ids, references to unknown ids and incomplete
// authors.
package validate

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"dbfeed/docbook"
)

// ErrInvalid is wrapped by every reported violation.
var ErrInvalid = errors.New("document is not valid")

// Document runs all checks. Every violation is logged separately, returned
// error combines all of them.
func Document(doc *etree.Document, log *zap.Logger) error {
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("%w: document is empty", ErrInvalid)
	}
	log = log.Named("validate")

	ids, err := IDs(root, log)
	return multierr.Combine(err, References(root, ids, log), Authors(root, log))
}

// IDs collects element ids reporting duplicates.
func IDs(root *etree.Element, log *zap.Logger) (map[string]bool, error) {
	var errs error
	ids := make(map[string]bool)
	docbook.Walk(root, func(el *etree.Element) bool {
		id, ok := docbook.ID(el)
		if !ok {
			return true
		}
		if ids[id] {
			log.Error("ID is duplicated in the source content", zap.String("id", id))
			errs = multierr.Append(errs, fmt.Errorf("%w: duplicate id %q", ErrInvalid, id))
		}
		ids[id] = true
		return true
	})
	return ids, errs
}

// References reports linkend and endterm attributes pointing to ids which
// are not in the document.
func References(root *etree.Element, ids map[string]bool, log *zap.Logger) error {
	var errs error
	docbook.Walk(root, func(el *etree.Element) bool {
		for _, name := range []string{"linkend", "endterm"} {
			v := el.SelectAttrValue(name, "")
			if len(v) == 0 || ids[v] {
				continue
			}
			log.Error("Unknown ID or title used as an internal cross reference",
				zap.String("id", v), zap.String("attr", name), zap.String("element", el.Tag))
			errs = multierr.Append(errs, fmt.Errorf("%w: unknown %s %q", ErrInvalid, name, v))
		}
		return true
	})
	return errs
}

// Authors reports authors without first name or surname, both are required
// by the renderer.
func Authors(root *etree.Element, log *zap.Logger) error {
	var errs error
	for _, author := range docbook.FindAll(root, "author") {
		for _, name := range []string{"firstname", "surname"} {
			if docbook.FindDescendant(author, name) != nil {
				continue
			}
			log.Error("Author is missing a required name", zap.String("missing", name),
				zap.String("author", docbook.Text(author)))
			errs = multierr.Append(errs, fmt.Errorf("%w: author without %s", ErrInvalid, name))
		}
	}
	return errs
}
