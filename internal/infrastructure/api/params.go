package api

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report query parameter names rather than Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

type shopQuery struct {
	Shop string `query:"shop" validate:"required"`
}

type trackingQuery struct {
	Shop    string `query:"shop" validate:"required"`
	OrderID string `query:"order_id" validate:"required,max=64"`
}

type billingCallbackQuery struct {
	Shop     string `query:"shop"`
	Type     string `query:"type" validate:"omitempty,oneof=recurring lifetime"`
	ChargeID string `query:"charge_id" validate:"omitempty,numeric"`
}

// bindQuery copies string query parameters into the query-tagged fields of dst and validates it
func bindQuery(r *http.Request, dst interface{}) error {
	q := r.URL.Query()
	v := reflect.ValueOf(dst).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Tag.Get("query")
		if name == "" || v.Field(i).Kind() != reflect.String {
			continue
		}
		v.Field(i).SetString(strings.TrimSpace(q.Get(name)))
	}
	return validate.Struct(dst)
}
