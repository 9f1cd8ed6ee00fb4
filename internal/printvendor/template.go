package printvendor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PodPackageID is the 6x9in full-color premium paperback package.
const PodPackageID = "0600X0900FCPREPB080CW444GXX"

type Address struct {
	Name        string `yaml:"name" json:"name"`
	Street1     string `yaml:"street1" json:"street1"`
	City        string `yaml:"city" json:"city"`
	StateCode   string `yaml:"state_code" json:"state_code"`
	PostCode    string `yaml:"postcode" json:"postcode"`
	CountryCode string `yaml:"country_code" json:"country_code"`
	PhoneNumber string `yaml:"phone_number" json:"phone_number"`
}

// Template holds the parts of a print job that do not come from the journal.
type Template struct {
	ContactEmail       string  `yaml:"contact_email"`
	ExternalID         string  `yaml:"external_id"`
	LineItemExternalID string  `yaml:"line_item_external_id"`
	PodPackageID       string  `yaml:"pod_package_id"`
	Quantity           int     `yaml:"quantity"`
	ProductionDelay    int     `yaml:"production_delay"`
	ShippingLevel      string  `yaml:"shipping_level"`
	ShippingAddress    Address `yaml:"shipping_address"`
}

func DefaultTemplate() Template {
	return Template{
		ContactEmail:       "orders@inkwell.app",
		ExternalID:         "inkwell-print",
		LineItemExternalID: "item-reference-1",
		PodPackageID:       PodPackageID,
		Quantity:           1,
		ProductionDelay:    120,
		ShippingLevel:      "MAIL",
		ShippingAddress: Address{
			Name:        "Jane Doe",
			Street1:     "350 5th Ave",
			City:        "New York",
			StateCode:   "NY",
			PostCode:    "10001",
			CountryCode: "US",
			PhoneNumber: "212-555-1234",
		},
	}
}

// LoadTemplate reads a YAML template over the defaults. An empty path returns
// the defaults.
func LoadTemplate(path string) (Template, error) {
	tpl := DefaultTemplate()
	path = strings.TrimSpace(path)
	if path == "" {
		return tpl, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return tpl, fmt.Errorf("read print template %q: %w", path, err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&tpl); err != nil && !errors.Is(err, io.EOF) {
		return tpl, fmt.Errorf("parse print template %q: %w", path, err)
	}

	if tpl.Quantity < 1 {
		return tpl, fmt.Errorf("invalid quantity %d in %q, expected >= 1", tpl.Quantity, path)
	}
	if tpl.PodPackageID == "" {
		tpl.PodPackageID = PodPackageID
	}
	return tpl, nil
}
