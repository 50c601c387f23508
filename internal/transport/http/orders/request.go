package orders

import (
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/comment"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/lineitem"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/order"
	"github.com/corray333/backend-labs/orderdesk/internal/transport/http/httpio"
	"github.com/shopspring/decimal"
)

// lineItemRequest represents a line item in a create or update order request.
type lineItemRequest struct {
	ID             string          `json:"id"`
	ProductID      string          `json:"productId"      validate:"required"`
	Quantity       decimal.Decimal `json:"quantity"`
	HelperQuantity httpio.Text     `json:"helperQuantity"`
	HelperUnit     string          `json:"helperUnit"`
	UnitCost       decimal.Decimal `json:"unitCost"`
	TotalCost      decimal.Decimal `json:"totalCost"`
}

func (r *lineItemRequest) toModel() lineitem.LineItem {
	return lineitem.LineItem{
		ID:             r.ID,
		ProductID:      r.ProductID,
		Quantity:       r.Quantity,
		HelperQuantity: string(r.HelperQuantity),
		HelperUnit:     r.HelperUnit,
		UnitCost:       r.UnitCost,
		TotalCost:      r.TotalCost,
	}
}

// commentRequest represents a comment in a create or update order request.
type commentRequest struct {
	ID       string `json:"id"`
	Category string `json:"category" validate:"required"`
	Body     string `json:"body"     validate:"required"`
}

func (r *commentRequest) toModel() (comment.Comment, error) {
	category, err := comment.ParseCategory(r.Category)
	if err != nil {
		return comment.Comment{}, err
	}

	return comment.Comment{
		ID:       r.ID,
		Category: category,
		Body:     r.Body,
	}, nil
}

// orderRequest is the body of create and update order requests.
type orderRequest struct {
	Status             string            `json:"status"`
	CustomerID         string            `json:"customerId"         validate:"required"`
	Proforma           bool              `json:"proforma"`
	ProformaDate       *httpio.Date      `json:"proformaDate"`
	Paid               bool              `json:"paid"`
	PaymentDate        *httpio.Date      `json:"paymentDate"`
	DeliveryStreet     string            `json:"deliveryStreet"`
	DeliveryCity       string            `json:"deliveryCity"`
	DeliveryPostalCode string            `json:"deliveryPostalCode"`
	DeliveryCountry    string            `json:"deliveryCountry"`
	TransportCost      httpio.Text       `json:"transportCost"`
	Content            string            `json:"content"`
	LineItems          []lineItemRequest `json:"lineItems"          validate:"dive"`
	Comments           []commentRequest  `json:"comments"           validate:"dive"`
}

// toModel converts orderRequest to order.Order.
func (r *orderRequest) toModel() (order.Order, error) {
	status := order.Status("")
	if r.Status != "" {
		parsed, err := order.ParseStatus(r.Status)
		if err != nil {
			return order.Order{}, err
		}
		status = parsed
	}

	items := make([]lineitem.LineItem, len(r.LineItems))
	for i := range r.LineItems {
		items[i] = r.LineItems[i].toModel()
	}

	comments := make([]comment.Comment, len(r.Comments))
	for i := range r.Comments {
		c, err := r.Comments[i].toModel()
		if err != nil {
			return order.Order{}, err
		}
		comments[i] = c
	}

	return order.Order{
		Status:             status,
		CustomerID:         r.CustomerID,
		Proforma:           r.Proforma,
		ProformaDate:       r.ProformaDate.TimePtr(),
		Paid:               r.Paid,
		PaymentDate:        r.PaymentDate.TimePtr(),
		DeliveryStreet:     r.DeliveryStreet,
		DeliveryCity:       r.DeliveryCity,
		DeliveryPostalCode: r.DeliveryPostalCode,
		DeliveryCountry:    r.DeliveryCountry,
		TransportCost:      order.ParseTransportCost(string(r.TransportCost)),
		Content:            r.Content,
		LineItems:          items,
		Comments:           comments,
	}, nil
}
