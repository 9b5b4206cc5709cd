package service

import (
	"aistudio/internal/entity"
	"aistudio/internal/model"
	"context"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

const (
	priceCacheTTL = time.Minute
	priceTableKey = "model_prices"
)

// Pricing 根据模型与场景计算一次生成的积分价格。价格表来自数据库，
// 进程内缓存一分钟；数据库不可用时回退到内置价格表。
type Pricing struct {
	repo  model.Repository
	cache *gocache.Cache
}

// NewPricing 创建价格服务。
func NewPricing(repo model.Repository) *Pricing {
	return &Pricing{
		repo:  repo,
		cache: gocache.New(priceCacheTTL, 2*priceCacheTTL),
	}
}

// Cost 返回模型在给定场景下的积分价格。图生图 / 图生视频使用 image 价格，
// 其余场景使用 text 价格。
func (p *Pricing) Cost(ctx context.Context, mediaType entity.MediaType, modelID, scene string) int64 {
	price := p.lookup(ctx, mediaType, modelID)
	if usesImagePrice(scene) {
		return price.ImageCredits
	}
	return price.TextCredits
}

// Invalidate 丢弃缓存的价格表，管理端修改价格后调用。
func (p *Pricing) Invalidate() {
	p.cache.Delete(priceTableKey)
}

// Catalog 返回当前生效的价格表，按模型标识排序。
func (p *Pricing) Catalog(ctx context.Context) []entity.DbModelPrice {
	table := p.table(ctx)
	prices := make([]entity.DbModelPrice, 0, len(table))
	for _, price := range table {
		prices = append(prices, price)
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].ModelID < prices[j].ModelID })
	return prices
}

func usesImagePrice(scene string) bool {
	switch strings.ToLower(strings.TrimSpace(scene)) {
	case "image-to-image", "image-to-video":
		return true
	default:
		return false
	}
}

func (p *Pricing) lookup(ctx context.Context, mediaType entity.MediaType, modelID string) entity.DbModelPrice {
	table := p.table(ctx)
	normalized := model.NormalizeModelID(modelID)

	keys := []string{normalized, model.DefaultModelID}
	if mediaType == entity.MediaVideo {
		keys = []string{model.VideoPriceKey(normalized), normalized, model.VideoPriceKey(model.DefaultModelID), model.DefaultModelID}
	}
	for _, key := range keys {
		if price, ok := table[key]; ok {
			return price
		}
	}
	return entity.DbModelPrice{ModelID: model.DefaultModelID, TextCredits: 2, ImageCredits: 4}
}

func (p *Pricing) table(ctx context.Context) map[string]entity.DbModelPrice {
	if cached, ok := p.cache.Get(priceTableKey); ok {
		if table, ok := cached.(map[string]entity.DbModelPrice); ok {
			return table
		}
	}

	prices := model.DefaultModelPrices()
	if p.repo != nil {
		stored, err := p.repo.ListModelPrices(ctx, false)
		if err != nil {
			logrus.WithError(err).Warn("load model prices failed, using built-in table")
		} else if len(stored) > 0 {
			prices = stored
		}
	}

	table := make(map[string]entity.DbModelPrice, len(prices))
	for _, price := range prices {
		table[model.NormalizeModelID(price.ModelID)] = price
	}
	p.cache.Set(priceTableKey, table, gocache.DefaultExpiration)
	return table
}
