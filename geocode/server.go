// Copyright 2026 The GeoRoute Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Server exposes the resolver and cache over a local HTTP API, meant for
// interactive poking and cache administration rather than public serving.
type Server struct {
	resolver *Resolver
	cache    *Cache
}

func NewServer(resolver *Resolver, cache *Cache) *Server {
	return &Server{resolver: resolver, cache: cache}
}

// Router builds the gin engine. Split out from Run so tests can drive it
// with httptest.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/api/resolve", s.resolveAddress)
	r.GET("/api/cache/stats", s.cacheStats)
	r.GET("/api/cache/entry", s.getCacheEntry)
	r.DELETE("/api/cache/entry", s.deleteCacheEntry)
	r.DELETE("/api/cache/region/:region", s.deleteCacheRegion)

	return r
}

func (s *Server) Run(addr string) error {
	if addr == "" {
		addr = "localhost:8080"
	}

	return s.Router().Run(addr)
}

func (s *Server) resolveAddress(ctx *gin.Context) {
	rec := AddressRecord{
		ID:     ctx.Query("id"),
		Street: ctx.Query("street"),
		City:   ctx.Query("city"),
		Region: ctx.Query("state"),
		Postal: ctx.Query("zip"),
	}

	res, err := s.resolver.Resolve(ctx.Request.Context(), rec)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, res)
}

func (s *Server) cacheStats(ctx *gin.Context) {
	stats, err := s.cache.Stats(strings.TrimSpace(ctx.Query("region")))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, stats)
}

func (s *Server) getCacheEntry(ctx *gin.Context) {
	key := ctx.Query("key")
	if key == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "key query parameter is required"})

		return
	}

	entry, err := s.cache.Get(key)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if entry == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "no entry for key"})

		return
	}

	ctx.JSON(http.StatusOK, entry)
}

func (s *Server) deleteCacheEntry(ctx *gin.Context) {
	key := ctx.Query("key")
	if key == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "key query parameter is required"})

		return
	}

	removed, err := s.cache.ClearKey(key)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (s *Server) deleteCacheRegion(ctx *gin.Context) {
	region := strings.TrimSpace(ctx.Param("region"))
	if region == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "region is required"})

		return
	}

	removed, err := s.cache.ClearRegion(region)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"region": strings.ToUpper(region), "removed": removed})
}
