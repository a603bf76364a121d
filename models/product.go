// Package models defines data structures for the product finder.
package models

import (
	"bytes"
	"encoding/json"
)

// FlexString decodes a JSON field that the catalog API serves either as a
// string or as a bare number, depending on the record.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// CatalogItem is a raw product record as returned by the catalog API. It is
// owned transiently by the aggregation engine during a single query and is
// never persisted.
type CatalogItem struct {
	Title              string     `json:"product_title"`
	TargetSalePrice    FlexString `json:"target_sale_price"`
	TargetAppSalePrice FlexString `json:"target_app_sale_price"`
	TargetOrigPrice    FlexString `json:"target_original_price"`
	Discount           FlexString `json:"discount"`
	EvaluateRate       FlexString `json:"evaluate_rate"`
	SalesCount         FlexString `json:"sales_count"`
	LastestVolume      FlexString `json:"lastest_volume"`
	ImageURL           string     `json:"product_main_image_url"`
	DetailURL          string     `json:"product_detail_url"`
	PromotionLink      string     `json:"promotion_link"`
}

// RankedProduct is the engine's output unit. Rank is unique and dense within
// 1..4; at most four instances exist per query result.
type RankedProduct struct {
	Rank          int     `csv:"rank" json:"rank"`
	Title         string  `csv:"title" json:"title"`
	Price         float64 `csv:"price" json:"price"`
	OriginalPrice float64 `csv:"original_price" json:"original_price"`
	Discount      *int    `csv:"discount" json:"discount"`
	Rating        string  `csv:"rating" json:"rating"`
	Orders        int     `csv:"orders" json:"orders"`
	ImageURL      string  `csv:"image_url" json:"image_url"`
	URL           string  `csv:"url" json:"url"`
}
