package validators

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/openanchor/gw-anchor-dispatcher/internal/assets"
	"github.com/openanchor/gw-anchor-dispatcher/internal/models"
)

// ValidateAmountAsset checks a monetary amount against the asset catalog.
// The amount must be a decimal string, strictly positive, and carry no more
// fractional digits than the asset permits. A nil request passes. The field
// name prefixes every error message.
func ValidateAmountAsset(ctx context.Context, field string, req *models.AmountAssetRequest, svc assets.AssetService) error {
	return validateAmountAsset(ctx, field, req, false, svc)
}

// ValidateFeeAmountAsset is ValidateAmountAsset with fee semantics: zero is
// a legal fee, negative is not.
func ValidateFeeAmountAsset(ctx context.Context, field string, req *models.AmountAssetRequest, svc assets.AssetService) error {
	return validateAmountAsset(ctx, field, req, true, svc)
}

func validateAmountAsset(ctx context.Context, field string, req *models.AmountAssetRequest, feeSemantics bool, svc assets.AssetService) error {
	if req == nil {
		return nil
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return models.NewBadRequestError("%s.amount is invalid", field)
	}
	if feeSemantics {
		if amount.IsNegative() {
			return models.NewBadRequestError("%s.amount should be non-negative", field)
		}
	} else if !amount.IsPositive() {
		return models.NewBadRequestError("%s.amount should be positive", field)
	}

	asset, err := svc.GetAsset(ctx, req.Asset)
	if err != nil {
		return models.NewBadRequestError("%s.asset is not supported", field)
	}

	if fractionalDigits(amount) > asset.SignificantDecimals {
		return models.NewBadRequestError("%s.amount exceeds the maximum number (%d) of decimals allowed for asset %s",
			field, asset.SignificantDecimals, asset.Code)
	}

	return nil
}

// fractionalDigits returns the number of digits after the decimal point as
// written, trailing zeros included.
func fractionalDigits(d decimal.Decimal) int32 {
	if d.Exponent() >= 0 {
		return 0
	}
	return -d.Exponent()
}
