package catalog

import (
	"errors"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxPrice = 10000

// FormInput is the raw create/update form as submitted by a client.
type FormInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Category    string `json:"category"`
	Image       string `json:"image"`
	InStock     bool   `json:"inStock"`
}

// Draft is a validated FormInput. Repository writes only accept drafts.
type Draft struct {
	Title       string
	Description string
	Price       float64
	Category    string
	Image       string
	InStock     bool
}

// FieldErrors maps a form field to its validation message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "invalid product form: " + strings.Join(parts, "; ")
}

type formFields struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"required,min=10,max=1000"`
	Price       string `json:"price" validate:"required,positivenumber,pricecap"`
	Category    string `json:"category" validate:"required,category"`
	Image       string `json:"image" validate:"required,url"`
}

var messages = map[string]map[string]string{
	"title": {
		"required": "Product title is required",
		"min":      "Product title must be at least 3 characters",
		"max":      "Product title must be less than 200 characters",
	},
	"description": {
		"required": "Product description is required",
		"min":      "Description must be at least 10 characters",
		"max":      "Description must be less than 1000 characters",
	},
	"price": {
		"required":       "Price is required",
		"positivenumber": "Price must be a positive number",
		"pricecap":       "Price must be less than $10,000",
	},
	"category": {
		"required": "Category is required",
		"category": "Please choose a valid category",
	},
	"image": {
		"required": "Product image URL is required",
		"url":      "Please enter a valid image URL",
	},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})

	_ = v.RegisterValidation("positivenumber", func(fl validator.FieldLevel) bool {
		p, ok := parsePrice(fl.Field().String())
		return ok && p > 0
	})
	_ = v.RegisterValidation("pricecap", func(fl validator.FieldLevel) bool {
		p, ok := parsePrice(fl.Field().String())
		return ok && p <= maxPrice
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return IsProductCategory(fl.Field().String())
	})

	return v
}

func parsePrice(s string) (float64, bool) {
	p, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, false
	}
	return p, true
}

// Validate checks in and returns its trimmed, parsed form. When any field is
// invalid the returned error is a FieldErrors with one message per field.
func Validate(in FormInput) (Draft, error) {
	f := formFields{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Price:       strings.TrimSpace(in.Price),
		Image:       strings.TrimSpace(in.Image),
	}
	if strings.TrimSpace(in.Category) != "" {
		f.Category = in.Category
	}

	err := validate.Struct(f)
	if err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return Draft{}, err
		}
		out := make(FieldErrors, len(verrs))
		for _, fe := range verrs {
			msg, ok := messages[fe.Field()][fe.Tag()]
			if !ok {
				msg = "Invalid value"
			}
			out[fe.Field()] = msg
		}
		return Draft{}, out
	}

	price, _ := parsePrice(f.Price)
	return Draft{
		Title:       f.Title,
		Description: f.Description,
		Price:       price,
		Category:    f.Category,
		Image:       f.Image,
		InStock:     in.InStock,
	}, nil
}
