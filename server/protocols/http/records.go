package http

import (
	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/records"
	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"
)

// recordFromJSON decodes a JSON object into a record. Whole numbers stay
// integers and nested values are kept as raw JSON text.
func recordFromJSON(body []byte) (records.Record, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New(ErrInvalidBody, "request body is not valid JSON", nil)
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return nil, errors.New(ErrInvalidBody, "request body must be a JSON object", nil)
	}

	rec := records.Record{}
	parsed.ForEach(func(key, value gjson.Result) bool {
		rec[key.String()] = jsonValue(value)
		return true
	})
	return rec, nil
}

func jsonValue(v gjson.Result) interface{} {
	switch v.Type {
	case gjson.Null:
		return nil
	case gjson.True, gjson.False:
		return v.Bool()
	case gjson.Number:
		if n := v.Int(); float64(n) == v.Num {
			return n
		}
		return v.Num
	case gjson.String:
		return v.String()
	}
	return v.Raw
}

func (s *Server) handleListRecords(c *fiber.Ctx) error {
	q, err := records.DecodeQuery(c.Queries())
	if err != nil {
		return err
	}
	recs, err := s.services.Records.List(c.UserContext(), c.Params("resource"), q)
	if err != nil {
		return err
	}
	if recs == nil {
		recs = []records.Record{}
	}
	return c.JSON(recs)
}

func (s *Server) handleCountRecords(c *fiber.Ctx) error {
	q, err := records.DecodeQuery(c.Queries())
	if err != nil {
		return err
	}
	n, err := s.services.Records.Count(c.UserContext(), c.Params("resource"), q.Filters...)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"count": n})
}

func (s *Server) handleGetRecord(c *fiber.Ctx) error {
	rec, err := s.services.Records.Get(c.UserContext(), c.Params("resource"), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(rec)
}

func (s *Server) handleCreateRecord(c *fiber.Ctx) error {
	rec, err := recordFromJSON(c.Body())
	if err != nil {
		return err
	}
	created, err := s.services.Records.Create(c.UserContext(), c.Params("resource"), rec)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (s *Server) handleUpsertRecord(c *fiber.Ctx) error {
	rec, err := recordFromJSON(c.Body())
	if err != nil {
		return err
	}
	saved, err := s.services.Records.Upsert(c.UserContext(), c.Params("resource"), rec)
	if err != nil {
		return err
	}
	return c.JSON(saved)
}

func (s *Server) handleUpdateRecord(c *fiber.Ctx) error {
	rec, err := recordFromJSON(c.Body())
	if err != nil {
		return err
	}
	updated, err := s.services.Records.Update(c.UserContext(), c.Params("resource"), c.Params("id"), rec)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

func (s *Server) handleDeleteRecord(c *fiber.Ctx) error {
	n, err := s.services.Records.Delete(c.UserContext(), c.Params("resource"), records.Eq("id", c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"deleted": n})
}

type deleteRequest struct {
	Filters []records.Filter `json:"filters"`
}

func (s *Server) handleDeleteRecords(c *fiber.Ctx) error {
	var req deleteRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.New(ErrInvalidBody, "expected {\"filters\":[...]}", err)
	}
	n, err := s.services.Records.Delete(c.UserContext(), c.Params("resource"), req.Filters...)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"deleted": n})
}

func (s *Server) handleQuery(c *fiber.Ctx) error {
	body := c.Body()
	if !gjson.ValidBytes(body) {
		return errors.New(ErrInvalidBody, "request body is not valid JSON", nil)
	}
	sql := gjson.GetBytes(body, "sql").String()
	if sql == "" {
		return errors.New(ErrInvalidBody, "sql is required", nil)
	}

	var args []interface{}
	gjson.GetBytes(body, "args").ForEach(func(_, v gjson.Result) bool {
		args = append(args, jsonValue(v))
		return true
	})

	s.logger.Info().Str("query", sql).Msg("Executing query via HTTP")
	rows, err := s.services.Records.Raw(c.UserContext(), sql, args...)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []records.Record{}
	}
	return c.JSON(fiber.Map{
		"rowCount": len(rows),
		"data":     rows,
	})
}
