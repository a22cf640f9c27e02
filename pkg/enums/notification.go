package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrderUpdate    NotificationType = "order_update"
	NotificationTypeDeliveryUpdate NotificationType = "delivery_update"
	NotificationTypeReturnUpdate   NotificationType = "return_update"
	NotificationTypeWalletUpdate   NotificationType = "wallet_update"
	NotificationTypeReferralReward NotificationType = "referral_reward"
	NotificationTypeOtpDispatch    NotificationType = "otp_dispatch"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderUpdate,
	NotificationTypeDeliveryUpdate,
	NotificationTypeReturnUpdate,
	NotificationTypeWalletUpdate,
	NotificationTypeReferralReward,
	NotificationTypeOtpDispatch,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
