package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

const maxBodyBytes = 1 << 20

var (
	errEmptyBody = errors.New("request body is empty")
	errSchema    = errors.New("request does not match schema")
	errForbidden = errors.New("caller may not access resource")
	// errTwoFactor is a missing, blank or wrong 2FA code. It is answered
	// with 401 and the 2FA flag so the client prompts for a code.
	errTwoFactor = errors.New("two-factor code rejected")
)

// Validator adapts go-playground/validator to echo.
type Validator struct{ v *validator.Validate }

func NewValidator() *Validator { return &Validator{v: validator.New()} }

func (cv *Validator) Validate(i interface{}) error { return cv.v.Struct(i) }

// readJSON returns the raw JSON object of the request. A non-JSON request,
// a blank body, null or {} all count as an empty body.
func readJSON(c echo.Context) ([]byte, error) {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
		return nil, errEmptyBody
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes))
	if err != nil {
		return nil, errSchema
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errEmptyBody
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errSchema
	}
	if len(fields) == 0 {
		return nil, errEmptyBody
	}
	return raw, nil
}

// bindBody decodes and validates the JSON body into dst.
func bindBody(c echo.Context, dst interface{}) error {
	raw, err := readJSON(c)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errSchema
	}
	if err := c.Validate(dst); err != nil {
		return errSchema
	}
	return nil
}

type twoFactorReq struct {
	Code *string `json:"code"`
}

// readTwoFactorCode returns the 2FA code of the body. An empty body or a
// blank code is errTwoFactor; a body without a code key fails the schema.
func readTwoFactorCode(c echo.Context) (string, error) {
	var req twoFactorReq
	switch err := bindBody(c, &req); {
	case errors.Is(err, errEmptyBody):
		return "", errTwoFactor
	case err != nil:
		return "", err
	}
	if req.Code == nil {
		return "", errSchema
	}
	code := strings.TrimSpace(*req.Code)
	if code == "" {
		return "", errTwoFactor
	}
	return code, nil
}

// bindPatch is bindBody for partial updates: any key in forbidden, or any
// key dst does not declare, fails the schema.
func bindPatch(c echo.Context, dst interface{}, forbidden ...string) error {
	raw, err := readJSON(c)
	if err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return errSchema
	}
	for _, k := range forbidden {
		if _, ok := keys[k]; ok {
			return errSchema
		}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errSchema
	}
	if err := c.Validate(dst); err != nil {
		return errSchema
	}
	return nil
}

// page reads the required limit and offset query parameters.
func page(c echo.Context) (limit, offset int, err error) {
	limit, err = strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit < 0 {
		return 0, 0, errSchema
	}
	offset, err = strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		return 0, 0, errSchema
	}
	return limit, offset, nil
}
