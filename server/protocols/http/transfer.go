package http

import (
	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/catalog"
	"github.com/gear6io/promptvalley/server/sheet"
	"github.com/gear6io/promptvalley/server/transfer"
	"github.com/gofiber/fiber/v2"
)

// ImportResponse is returned by the import endpoint. Result is nil for a
// validation-only run.
type ImportResponse struct {
	Resource string                       `json:"resource"`
	FileName string                       `json:"file_name"`
	Headers  []string                     `json:"headers"`
	Rows     int                          `json:"rows"`
	Warnings []transfer.ValidationWarning `json:"warnings"`
	Outcome  transfer.Outcome             `json:"outcome,omitempty"`
	Result   *transfer.Result             `json:"result,omitempty"`
}

func (s *Server) handleImport(c *fiber.Ctx) error {
	res, err := catalog.Lookup(c.Params("resource"))
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return errors.New(ErrMissingFile, "multipart field 'file' is required", err)
	}
	f, err := fh.Open()
	if err != nil {
		return errors.New(ErrMissingFile, "failed to open uploaded file", err)
	}
	defer f.Close()

	ctx := c.UserContext()
	session := transfer.NewSession(s.services.Importer, res)
	if err := session.Load(fh.Filename, f); err != nil {
		return err
	}
	warnings, err := session.Validate(ctx)
	if err != nil {
		return err
	}

	resp := ImportResponse{
		Resource: res.Name,
		FileName: session.FileName(),
		Headers:  session.Table().Headers,
		Rows:     len(session.Table().Rows),
		Warnings: warnings,
	}
	if c.QueryBool("validate") {
		return c.JSON(resp)
	}

	result, err := session.Import(ctx, nil)
	if err != nil {
		return err
	}
	resp.Result = result
	resp.Outcome = result.Outcome()

	s.logger.Info().
		Str("resource", res.Name).
		Str("run_id", result.RunID).
		Int("success", result.Success).
		Int("failed", result.Failed).
		Msg("Import finished")
	return c.JSON(resp)
}

func (s *Server) handleExport(c *fiber.Ctx) error {
	res, format, err := transferTarget(c)
	if err != nil {
		return err
	}
	req, err := transfer.ExportRequestFor(res, format)
	if err != nil {
		return err
	}
	file, err := s.services.Exporter.ExportResource(c.UserContext(), req)
	if err != nil {
		return err
	}
	return sendFile(c, file)
}

func (s *Server) handleTemplate(c *fiber.Ctx) error {
	res, format, err := transferTarget(c)
	if err != nil {
		return err
	}
	file, err := s.services.Exporter.Template(res, format)
	if err != nil {
		return err
	}
	return sendFile(c, file)
}

func transferTarget(c *fiber.Ctx) (*catalog.Resource, sheet.Format, error) {
	res, err := catalog.Lookup(c.Params("resource"))
	if err != nil {
		return nil, "", err
	}
	format, err := sheet.ParseFormat(c.Query("format", string(sheet.FormatXLSX)))
	if err != nil {
		return nil, "", err
	}
	return res, format, nil
}

func sendFile(c *fiber.Ctx, file *transfer.File) error {
	c.Attachment(file.Name)
	c.Set(fiber.HeaderContentType, file.ContentType)
	return c.Send(file.Data)
}

// handlePurgeBucket empties a bucket level by level and deletes it. The
// confirm parameter must repeat the bucket name.
func (s *Server) handlePurgeBucket(c *fiber.Ctx) error {
	report, err := s.services.Library.DeleteBucket(c.UserContext(), c.Params("id"), c.Query("confirm"))
	if err != nil {
		return err
	}
	return c.JSON(report)
}
