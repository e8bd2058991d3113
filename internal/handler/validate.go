package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	customError "github.com/naimprince010-ship-it/isp-billing/pkg/errors"
	"github.com/naimprince010-ship-it/isp-billing/pkg/money"
)

const maxBodyBytes = 1 << 20

// outOfRange stands in for amounts the ledger cannot store; it fails gt and gte
const outOfRange int64 = math.MinInt64

// newValidator validates money.Amount fields on their minor units, so tags
// like gt=0 read as "at least one paisa"
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		a, ok := field.Interface().(money.Amount)
		if !ok {
			return nil
		}
		if minor, ok := a.MinorUnits(); ok {
			return minor
		}
		return outOfRange
	}, money.Amount{})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it
func (h *BillingHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return customError.WrapValidation("invalid request body: " + err.Error())
	}

	if err := h.validator.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return customError.WrapValidation(strings.Join(fields, "; "))
		}
		return customError.WrapValidation(err.Error())
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	raw := mux.Vars(r)[name]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, customError.WrapValidation(fmt.Sprintf("%s must be a UUID", name))
	}
	return id, nil
}
