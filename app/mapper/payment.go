package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-svea/app/entity"
	"github.com/vibast-solutions/ms-go-svea/app/svea"
	"github.com/vibast-solutions/ms-go-svea/app/types"
)

func PaymentToAPI(item *entity.PaymentRecord) *types.Payment {
	if item == nil {
		return nil
	}

	return &types.Payment{
		Id:            item.ID,
		OrderId:       item.OrderID,
		PaymentId:     item.PaymentID,
		PaymentMethod: item.PaymentMethod,
		Status:        entity.StatusName(item.Status),
		DataSent:      cloneFields(item.DataSent),
		DataReceived:  cloneFields(item.DataReceived),
		DateAdded:     item.DateAdded.UTC().Format(time.RFC3339),
		DateUpdated:   item.DateUpdated.UTC().Format(time.RFC3339),
	}
}

func PaymentsToAPI(items []*entity.PaymentRecord) []*types.Payment {
	result := make([]*types.Payment, 0, len(items))
	for _, item := range items {
		result = append(result, PaymentToAPI(item))
	}
	return result
}

func RedirectFormToAPI(record *entity.PaymentRecord, form svea.RedirectForm) *types.RedirectFormResponse {
	fields := make([]types.FormField, 0, len(form.Fields))
	for _, field := range form.Fields {
		fields = append(fields, types.FormField{Name: field.Name, Value: field.Value})
	}
	return &types.RedirectFormResponse{
		Payment: PaymentToAPI(record),
		Action:  form.Action,
		Method:  form.Method,
		Fields:  fields,
	}
}

func cloneFields(src map[string]string) map[string]string {
	if len(src) == 0 {
		return map[string]string{}
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
