package model

import "time"

// Contract is a forward commitment to deliver Quantity kWh on Market during
// the slot starting at DeliveryTime, at Price €/kWh.
type Contract struct {
	Market       Market
	DeliveryTime time.Time
	Quantity     float64
	Price        float64
}

// Equal compares contracts by value; times are compared as instants.
func (c Contract) Equal(o Contract) bool {
	return c.Market == o.Market &&
		c.DeliveryTime.Equal(o.DeliveryTime) &&
		c.Quantity == o.Quantity &&
		c.Price == o.Price
}
