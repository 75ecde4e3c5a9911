package notionsync

import (
	"github.com/dvloznov/vendor-ledger/internal/invoice"
	"github.com/jomei/notionapi"
)

// Property names of the vendor lines database.
const (
	PropVendor    = "Vendor"
	PropLineID    = "Line ID"
	PropBatchID   = "Batch ID"
	PropDate      = "Date"
	PropPAN       = "PAN"
	PropGST       = "GST"
	PropVersion   = "Version"
	PropLanguage  = "Language"
	PropQuantity  = "Quantity"
	PropUnitPrice = "Unit Price"
	PropAmount    = "Amount"
	PropNotes     = "Notes"
	PropPANImage  = "PAN Image"
	PropGSTImage  = "GST Image"
)

func richText(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{
			{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{Content: s},
			},
		},
	}
}

// LineItemToNotionProperties converts a submitted line to page properties.
// The vendor name is the page title; empty optional fields are omitted.
func LineItemToNotionProperties(item invoice.LineItem, batchID string) notionapi.Properties {
	created := notionapi.Date(item.CreatedAt())
	unitPrice, _ := item.UnitPrice().Float64()
	amount, _ := item.Amount().Float64()

	props := notionapi.Properties{
		PropVendor: notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: item.VendorName()},
				},
			},
		},
		PropLineID:    richText(item.ID()),
		PropDate:      notionapi.DateProperty{Date: &notionapi.DateObject{Start: &created}},
		PropPAN:       richText(item.TaxID1()),
		PropGST:       richText(item.TaxID2()),
		PropVersion:   notionapi.SelectProperty{Select: notionapi.Option{Name: item.ProductVersion()}},
		PropLanguage:  notionapi.SelectProperty{Select: notionapi.Option{Name: item.Language()}},
		PropQuantity:  notionapi.NumberProperty{Number: float64(item.Quantity())},
		PropUnitPrice: notionapi.NumberProperty{Number: unitPrice},
		PropAmount:    notionapi.NumberProperty{Number: amount},
	}

	if batchID != "" {
		props[PropBatchID] = richText(batchID)
	}
	if item.Notes() != "" {
		props[PropNotes] = richText(item.Notes())
	}
	refs := item.Attachments()
	if refs.Primary != "" {
		props[PropPANImage] = richText(refs.Primary)
	}
	if refs.Secondary != "" {
		props[PropGSTImage] = richText(refs.Secondary)
	}

	return props
}
