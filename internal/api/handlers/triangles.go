package handlers

import (
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"onlevel-reserving/internal/api/middleware"
	"onlevel-reserving/internal/data"
	"onlevel-reserving/internal/model"
)

// maxWorkbookBytes caps an uploaded workbook.
const maxWorkbookBytes = 8 << 20

// ConvertXLSX handles POST /api/v1/triangles/xlsx. The multipart form carries
// the workbook in "file" plus "grain" and "valuation_date"; the response is
// the JSON triangle file the reserve endpoint accepts.
func ConvertXLSX(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		middleware.BadRequest(c, "Missing workbook upload", err)
		return
	}
	if fh.Size > maxWorkbookBytes {
		middleware.AbortWithError(c, model.ConfigurationError("file", "workbook is %d bytes, limit is %d", fh.Size, maxWorkbookBytes))
		return
	}
	grain, err := model.ParseGrain(c.PostForm("grain"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	valuation, err := parseDate("valuation_date", c.PostForm("valuation_date"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		middleware.BadRequest(c, "Unreadable upload", err)
		return
	}
	defer f.Close()

	tris, err := data.ReadTrianglesXLSX(f, grain, valuation)
	if err != nil {
		if status, _ := middleware.StatusFor(err); status == http.StatusInternalServerError {
			middleware.BadRequest(c, "Invalid workbook", err)
			return
		}
		middleware.AbortWithError(c, err)
		return
	}
	names := make([]string, 0, len(tris))
	for n := range tris {
		names = append(names, n)
	}
	sort.Strings(names)
	ordered := make([]*model.Triangle, len(names))
	for i, n := range names {
		ordered[i] = tris[n]
	}

	name := strings.TrimSuffix(filepath.Base(fh.Filename), filepath.Ext(fh.Filename))
	file, err := data.NewTriangleFile(name, ordered...)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}
