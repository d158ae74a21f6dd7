package client

import (
	"context"
	"fmt"
	"strconv"
	"time"

	fclient "github.com/gofiber/fiber/v3/client"

	"github.com/rajivgeraev/kos-api/internal/lifecycle"
	"github.com/rajivgeraev/kos-api/internal/models"
)

// Client HTTP-клиент административного API объявлений
type Client struct {
	http  *fclient.Client
	token string
}

// New создаёт клиент для baseURL с токеном администратора
func New(baseURL, token string) *Client {
	c := fclient.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second)
	return &Client{http: c, token: token}
}

type errorBody struct {
	Kind  lifecycle.Kind `json:"kind"`
	Error string         `json:"error"`
}

type listBody struct {
	Items []models.Kos `json:"items"`
}

type bulkBody struct {
	Count     int                     `json:"count"`
	Succeeded []int64                 `json:"succeeded"`
	Failed    []lifecycle.BulkFailure `json:"failed"`
}

// ListKos возвращает активное или архивное представление
func (c *Client) ListKos(ctx context.Context, archived bool) ([]models.Kos, error) {
	var body listBody
	err := c.do(ctx, "GET", "/api/admin/kos", fclient.Config{
		Param: map[string]string{"archived": strconv.FormatBool(archived)},
	}, &body)
	if err != nil {
		return nil, err
	}
	return body.Items, nil
}

// BulkArchive архивирует ids на сервере
func (c *Client) BulkArchive(ctx context.Context, ids []int64) (lifecycle.BulkResult, error) {
	return c.bulk(ctx, "/api/admin/kos/bulk-archive", ids)
}

// BulkPermanentDelete удаляет ids навсегда на сервере
func (c *Client) BulkPermanentDelete(ctx context.Context, ids []int64) (lifecycle.BulkResult, error) {
	return c.bulk(ctx, "/api/admin/kos/bulk-delete", ids)
}

func (c *Client) bulk(ctx context.Context, path string, ids []int64) (lifecycle.BulkResult, error) {
	if ids == nil {
		ids = []int64{}
	}
	var body bulkBody
	err := c.do(ctx, "POST", path, fclient.Config{
		Body: map[string][]int64{"ids": ids},
	}, &body)
	if err != nil {
		return lifecycle.BulkResult{}, err
	}

	res := lifecycle.BulkResult{Count: body.Count, Succeeded: body.Succeeded, Failed: body.Failed}
	if res.Succeeded == nil {
		res.Succeeded = []int64{}
	}
	if res.Failed == nil {
		res.Failed = []lifecycle.BulkFailure{}
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, method, path string, cfg fclient.Config, out any) error {
	cfg.Ctx = ctx
	cfg.Header = map[string]string{"Authorization": "Bearer " + c.token}

	var (
		resp *fclient.Response
		err  error
	)
	switch method {
	case "GET":
		resp, err = c.http.Get(path, cfg)
	case "POST":
		resp, err = c.http.Post(path, cfg)
	default:
		return fmt.Errorf("неподдерживаемый метод %s", method)
	}
	if err != nil {
		return fmt.Errorf("ошибка запроса %s %s: %w", method, path, err)
	}
	defer resp.Close()

	if resp.StatusCode() != 200 {
		var eb errorBody
		if jerr := resp.JSON(&eb); jerr != nil || eb.Kind == "" {
			return lifecycle.NewError(lifecycle.KindInternal, fmt.Sprintf("неожиданный ответ сервера: %d", resp.StatusCode()))
		}
		return lifecycle.NewError(eb.Kind, eb.Error)
	}

	if err := resp.JSON(out); err != nil {
		return fmt.Errorf("ошибка декодирования ответа: %w", err)
	}
	return nil
}
