package application

import (
	"math"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/arkade-os/kittyd/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/arkade-os/kittyd/internal/core/application")

func assetAttributes(id domain.Hash) []trace.SpanStartOption {
	return []trace.SpanStartOption{
		trace.WithAttributes(attribute.String("asset_id", id.String())),
	}
}

func endSpan(span trace.Span, err errors.Error) {
	if err != nil {
		span.SetAttributes(
			attribute.String("error.name", err.CodeName()),
			attribute.Int("error.code", int(err.Code())),
		)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// pageWindow returns the [start, end) positions of the requested page of a
// registry holding total entries. A nil page selects every entry.
func pageWindow(total uint64, params *Page, maxSize int32) (uint64, uint64, PageResp) {
	if params == nil {
		return 0, total, PageResp{}
	}
	pageSize := params.PageSize
	if pageSize <= 0 || pageSize > maxSize {
		pageSize = maxSize
	}
	pageNum := params.PageNum
	if pageNum <= 0 {
		pageNum = 1
	}

	size := uint64(pageSize)
	totalPages := total / size
	if total%size != 0 {
		totalPages++
	}
	pages := int32(min(totalPages, math.MaxInt32))
	next := pages
	if pageNum < pages {
		next = pageNum + 1
	}
	resp := PageResp{
		Current: pageNum,
		Next:    next,
		Total:   pages,
	}

	start := uint64(pageNum-1) * size
	if start >= total {
		return total, total, resp
	}
	return start, min(start+size, total), resp
}
