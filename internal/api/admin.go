package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/and161185/restaurant-client/internal/convert"
	"github.com/and161185/restaurant-client/internal/errs"
	"github.com/and161185/restaurant-client/internal/model"
)

// Upload is an optional cover image.
type Upload struct {
	Filename string
	Content  io.Reader
}

// ProductForm is the admin create/update form. Create sends CategoryName
// (the backend creates unknown categories), update sends CategoryID.
type ProductForm struct {
	Name         string          `json:"name" validate:"required"`
	Description  string          `json:"description" validate:"required"`
	Price        decimal.Decimal `json:"price" validate:"gte=0"`
	Stock        int             `json:"stock" validate:"gte=0"`
	Discount     decimal.Decimal `json:"discountPercent" validate:"gte=0,lte=100"`
	CategoryName string          `json:"categoryName"`
	CategoryID   string          `json:"category"`
	Featured     bool            `json:"isFeatured"`
	OnSale       bool            `json:"isOnSale"`
	Image        *Upload         `json:"-"`
}

// multipartBody encodes f as multipart/form-data.
func (f ProductForm) multipartBody(create bool) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"name", f.Name},
		{"description", f.Description},
		{"price", f.Price.String()},
		{"stock", strconv.Itoa(f.Stock)},
		{"discountPercent", f.Discount.String()},
		{"isOnSale", strconv.FormatBool(f.OnSale)},
	}
	if create {
		// the backend reads the misspelled key on create
		fields = append(fields,
			[2]string{"isFormDataValid", "true"},
			[2]string{"categoryName", f.CategoryName},
			[2]string{"isFeautred", strconv.FormatBool(f.Featured)},
		)
	} else {
		fields = append(fields,
			[2]string{"isFeautred", strconv.FormatBool(f.Featured)},
			[2]string{"isFeatured", strconv.FormatBool(f.Featured)},
		)
		if f.CategoryID != "" {
			fields = append(fields, [2]string{"category", f.CategoryID})
		}
	}
	for _, kv := range fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	if f.Image != nil && f.Image.Content != nil {
		part, err := w.CreateFormFile("coverImage", filepath.Base(f.Image.Filename))
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, f.Image.Content); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

type productEnvelope struct {
	Product *convert.Product `json:"product"`
	Message string           `json:"message"`
}

func (c *Client) sendProduct(ctx context.Context, method, path string, f ProductForm, create bool) (*model.Product, error) {
	body, ct, err := f.multipartBody(create)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s %s: %v", errs.ErrTransport, method, path, err)
	}
	var env productEnvelope
	if err := c.do(ctx, request{method: method, path: path, body: body, contentType: ct}, &env); err != nil {
		return nil, err
	}
	if env.Product == nil {
		return nil, nil
	}
	p := convert.ToProduct(*env.Product)
	return &p, nil
}

// AdminListProducts lists the catalog through the admin endpoint; it answers
// 401/403 to non-admins and so doubles as an access probe.
func (c *Client) AdminListProducts(ctx context.Context) ([]model.Product, error) {
	ps, err := getList[convert.Product](ctx, c, "/admin/getProducts", "products")
	if err != nil {
		return nil, err
	}
	return convert.ToProducts(ps), nil
}

// AdminAddProduct creates a product. The returned product is nil when the
// backend did not echo it.
func (c *Client) AdminAddProduct(ctx context.Context, f ProductForm) (*model.Product, error) {
	return c.sendProduct(ctx, http.MethodPost, "/admin/addProduct", f, true)
}

// AdminUpdateProduct replaces a product's fields.
func (c *Client) AdminUpdateProduct(ctx context.Context, id string, f ProductForm) (*model.Product, error) {
	return c.sendProduct(ctx, http.MethodPut, "/admin/updateProduct/"+escape(id), f, false)
}

// AdminDeleteProduct deletes a product and returns the server's message.
func (c *Client) AdminDeleteProduct(ctx context.Context, id string) (string, error) {
	var env productEnvelope
	if err := c.doJSON(ctx, http.MethodDelete, "/admin/deleteProduct/"+escape(id), nil, &env); err != nil {
		return "", err
	}
	return env.Message, nil
}
