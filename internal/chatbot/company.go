package chatbot

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const companyUnavailableMessage = "Please contact us for more information."

func (e *Engine) companyInfoResponse(ctx context.Context, intent Intent) string {
	company, err := e.settings.CompanyInfo(ctx)
	if err != nil {
		e.logger.Error("failed to load company info", zap.Error(err))
		return companyUnavailableMessage
	}
	if company == nil {
		return companyUnavailableMessage
	}

	switch intent {
	case IntentLocation:
		return fmt.Sprintf("We're located at: %s\n\nPhone: %s\nEmail: %s", company.Address, company.Phone, company.Email)
	case IntentServices:
		return fmt.Sprintf("We offer the following services:\n%s\n\nFor more details, please contact us at %s", company.Services, company.Phone)
	case IntentContact:
		return fmt.Sprintf("You can reach us:\n\n📞 Phone: %s\n📧 Email: %s\n📍 Address: %s", company.Phone, company.Email, company.Address)
	case IntentPricing:
		if company.PricingInfo != "" {
			return fmt.Sprintf("%s\n\nFor a detailed quote, please contact us at %s", company.PricingInfo, company.Phone)
		}
		return fmt.Sprintf("Please contact us for pricing information and quotes at %s", company.Phone)
	default:
		return fmt.Sprintf("%s\n\nContact us at %s for more information.", company.Description, company.Phone)
	}
}
