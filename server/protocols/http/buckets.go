package http

import (
	"bytes"
	"strconv"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"
)

// UpsertHeader asks an upload to overwrite an existing object
const UpsertHeader = "X-Upsert"

type createBucketRequest struct {
	Name string `json:"name"`
	storage.BucketOptions
}

type removeRequest struct {
	Paths []string `json:"paths"`
}

func (s *Server) handleListBuckets(c *fiber.Ctx) error {
	buckets, err := s.services.Storage.ListBuckets(c.UserContext())
	if err != nil {
		return err
	}
	if buckets == nil {
		buckets = []storage.Bucket{}
	}
	return c.JSON(buckets)
}

func (s *Server) handleCreateBucket(c *fiber.Ctx) error {
	var req createBucketRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.New(ErrInvalidBody, "expected a bucket definition", err)
	}
	bucket, err := s.services.Storage.CreateBucket(c.UserContext(), req.Name, req.BucketOptions)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(bucket)
}

func (s *Server) handleGetBucket(c *fiber.Ctx) error {
	bucket, err := s.services.Storage.GetBucket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(bucket)
}

// handleUpdateBucket applies only the fields present in the body
func (s *Server) handleUpdateBucket(c *fiber.Ctx) error {
	upd, err := bucketUpdateFromJSON(c.Body())
	if err != nil {
		return err
	}
	bucket, err := s.services.Storage.UpdateBucket(c.UserContext(), c.Params("id"), upd)
	if err != nil {
		return err
	}
	return c.JSON(bucket)
}

func bucketUpdateFromJSON(body []byte) (storage.BucketUpdate, error) {
	var upd storage.BucketUpdate
	if !gjson.ValidBytes(body) {
		return upd, errors.New(ErrInvalidBody, "request body is not valid JSON", nil)
	}

	if v := gjson.GetBytes(body, "public"); v.Exists() {
		if v.Type != gjson.True && v.Type != gjson.False {
			return upd, errors.New(ErrInvalidBody, "public must be a boolean", nil)
		}
		public := v.Bool()
		upd.Public = &public
	}
	if v := gjson.GetBytes(body, "file_size_limit"); v.Exists() && v.Type == gjson.Number {
		limit := v.Int()
		upd.FileSizeLimit = &limit
	}
	if v := gjson.GetBytes(body, "allowed_mime_types"); v.Exists() {
		types := []string{}
		for _, t := range v.Array() {
			types = append(types, t.String())
		}
		upd.AllowedMimeTypes = &types
	}
	return upd, nil
}

func (s *Server) handleDeleteBucket(c *fiber.Ctx) error {
	if err := s.services.Storage.DeleteBucket(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleListObjects(c *fiber.Ctx) error {
	entries, err := s.services.Storage.List(c.UserContext(), c.Params("id"), c.Query("prefix"), storage.ListOptions{
		Limit:  c.QueryInt("limit"),
		Offset: c.QueryInt("offset"),
		SortBy: storage.SortBy{
			Column: c.Query("sort", "name"),
			Order:  c.Query("order", "asc"),
		},
	})
	if err != nil {
		return err
	}
	return c.JSON(entries)
}

func (s *Server) handleUploadObject(c *fiber.Ctx) error {
	body := c.Body()
	upsert, _ := strconv.ParseBool(c.Get(UpsertHeader))
	contentType := c.Get(fiber.HeaderContentType)
	if contentType == fiber.MIMEOctetStream {
		contentType = ""
	}

	info, err := s.services.Storage.Upload(c.UserContext(), c.Params("id"), objectPath(c), bytes.NewReader(body), int64(len(body)), storage.UploadOptions{
		Upsert:      upsert,
		ContentType: contentType,
	})
	if err != nil {
		return err
	}
	return c.JSON(info)
}

func (s *Server) handleDownloadObject(c *fiber.Ctx) error {
	return s.sendObject(c, c.Params("id"))
}

func (s *Server) handlePublicObject(c *fiber.Ctx) error {
	bucket, err := s.services.Storage.GetBucket(c.UserContext(), c.Params("bucket"))
	if err != nil {
		return err
	}
	if !bucket.Public {
		return errors.New(ErrNotPublic, "bucket is not public", nil).AddContext("bucket", bucket.ID)
	}
	return s.sendObject(c, bucket.ID)
}

func (s *Server) sendObject(c *fiber.Ctx, bucket string) error {
	rc, info, err := s.services.Storage.Download(c.UserContext(), bucket, objectPath(c))
	if err != nil {
		return err
	}
	if info.ContentType != "" {
		c.Set(fiber.HeaderContentType, info.ContentType)
	}
	if info.ETag != "" {
		c.Set(fiber.HeaderETag, `"`+info.ETag+`"`)
	}
	return c.SendStream(rc, int(info.Size))
}

func (s *Server) handleRemoveObjects(c *fiber.Ctx) error {
	var req removeRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.New(ErrInvalidBody, "expected {\"paths\":[...]}", err)
	}
	removed, err := s.services.Storage.Remove(c.UserContext(), c.Params("id"), req.Paths)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"removed": removed})
}

func objectPath(c *fiber.Ctx) string {
	return c.Params("*")
}
