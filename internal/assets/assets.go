package assets

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when an asset code does not resolve in the catalog.
var ErrNotFound = errors.New("asset not found")

// Asset describes a single entry of the asset catalog. SignificantDecimals
// is the number of fractional digits permitted for amounts of this asset.
type Asset struct {
	Schema              string `json:"schema"`
	Code                string `json:"code"`
	Issuer              string `json:"issuer,omitempty"`
	SignificantDecimals int32  `json:"significant_decimals"`
}

// AssetService resolves asset codes to catalog entries. The catalog is
// read-only after startup.
type AssetService interface {
	GetAsset(ctx context.Context, code string) (*Asset, error)
}

// AssetCode extracts the bare code from a SEP-38 asset identifier such as
// "stellar:USDC:G..." or "iso4217:USD". A bare code passes through.
func AssetCode(asset string) string {
	parts := strings.SplitN(asset, ":", 3)
	if len(parts) >= 2 {
		return parts[1]
	}
	return parts[0]
}

// StaticAssetService serves a fixed in-memory catalog keyed by code.
type StaticAssetService struct {
	byCode map[string]Asset
}

// NewStaticAssetService builds a catalog from the given entries.
func NewStaticAssetService(entries []Asset) *StaticAssetService {
	byCode := make(map[string]Asset, len(entries))
	for _, a := range entries {
		byCode[a.Code] = a
	}
	return &StaticAssetService{byCode: byCode}
}

// GetAsset resolves a bare code or a full SEP-38 identifier.
func (s *StaticAssetService) GetAsset(ctx context.Context, code string) (*Asset, error) {
	a, ok := s.byCode[AssetCode(code)]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

// DefaultAssets is the fixed catalog the service is started with.
var DefaultAssets = []Asset{
	{Schema: "stellar", Code: "USDC", Issuer: "GDQOE23CFSUMSVQK4Y5JHPPYK73VYCNHZHA7ENKCV37P6SUEO6XQBKPP", SignificantDecimals: 7},
	{Schema: "stellar", Code: "native", SignificantDecimals: 7},
	{Schema: "iso4217", Code: "USD", SignificantDecimals: 2},
}
