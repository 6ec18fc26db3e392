package hooks

import (
	"fmt"
	"strings"

	"github.com/shopmesh/parceline-bridge/pkg/shipper"
)

// resolveRecipient builds the recipient contact from whatever the
// order carries, in precedence order: customer record, shipping
// address fields, a generic placeholder name.
func resolveRecipient(order *Order) shipper.Contact {
	contact := shipper.Contact{}

	if order.Customer != nil {
		contact.Name = strings.TrimSpace(order.Customer.FirstName + " " + order.Customer.LastName)
		contact.Phone = order.Customer.Phone
		contact.Email = order.Customer.Email
	}

	if addr := order.ShippingAddress; addr != nil {
		if contact.Name == "" {
			contact.Name = strings.TrimSpace(addr.FirstName + " " + addr.LastName)
		}
		if contact.Name == "" {
			contact.Name = addr.Company
		}
		if contact.Phone == "" {
			contact.Phone = addr.Phone
		}
		contact.Company = addr.Company
	}

	if contact.Name == "" {
		contact.Name = "Recipient"
	}
	return contact
}

// destinationAddress maps the order's shipping address, carrying the
// resolved recipient name onto the address record.
func destinationAddress(order *Order, recipient shipper.Contact) (shipper.Address, error) {
	addr := order.ShippingAddress
	if addr == nil {
		return shipper.Address{}, fmt.Errorf("%w: order %s has no shipping address",
			shipper.ErrInvalidAddress, order.ID)
	}
	return shipper.Address{
		Name:        recipient.Name,
		Company:     addr.Company,
		Line1:       addr.Line1,
		Line2:       addr.Line2,
		City:        addr.City,
		CityCode:    addr.CityCode,
		Province:    addr.Province,
		PostalCode:  addr.PostalCode,
		CountryCode: addr.CountryCode,
		Phone:       firstNonEmpty(recipient.Phone, addr.Phone),
		Email:       recipient.Email,
	}, nil
}

// packagesFromLines builds one parcel per order line. Missing weight
// or dimensions stay zero here; the provider layer substitutes its
// fixed defaults.
func packagesFromLines(order *Order, selected []FulfillmentLine) []shipper.Package {
	lines := order.Lines
	if len(selected) > 0 {
		lines = pickLines(order.Lines, selected)
	}

	packages := make([]shipper.Package, 0, len(lines))
	for _, line := range lines {
		qty := line.Quantity
		if qty <= 0 {
			qty = 1
		}
		pkg := shipper.Package{
			Reference:   line.ID,
			Description: line.Title,
			WeightUnit:  shipper.WeightKG,
		}
		if line.WeightKG != nil {
			pkg.Weight = *line.WeightKG * float64(qty)
		}
		if line.LengthCM != nil {
			pkg.Length = *line.LengthCM
		}
		if line.WidthCM != nil {
			pkg.Width = *line.WidthCM
		}
		if line.HeightCM != nil {
			pkg.Height = *line.HeightCM
		}
		pkg.DimensionUnit = shipper.DimensionCM
		packages = append(packages, pkg)
	}
	if len(packages) == 0 {
		// Order with no lines still ships as one default parcel.
		packages = append(packages, shipper.Package{WeightUnit: shipper.WeightKG, DimensionUnit: shipper.DimensionCM})
	}
	return packages
}

func pickLines(all []OrderLine, selected []FulfillmentLine) []OrderLine {
	byID := make(map[string]OrderLine, len(all))
	for _, l := range all {
		byID[l.ID] = l
	}
	result := make([]OrderLine, 0, len(selected))
	for _, sel := range selected {
		if l, ok := byID[sel.LineID]; ok {
			if sel.Quantity > 0 {
				l.Quantity = sel.Quantity
			}
			result = append(result, l)
		}
	}
	return result
}

func serviceLevelFromArgs(arg, fallback string) shipper.ServiceLevel {
	if arg != "" {
		return shipper.ServiceLevel(arg)
	}
	if fallback != "" {
		return shipper.ServiceLevel(fallback)
	}
	return shipper.ServiceStandard
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
