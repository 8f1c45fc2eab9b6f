package email

import "fmt"

// Config carries the transactional email settings. The Postmark tokens are
// optional; without them the service falls back to the log-only sender.
// Sender and support addresses are always required since they establish
// the From and Reply-To identity of every outbound message.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`
}

// Validate reports whether the config is complete enough for a real
// Postmark sender.
func (c Config) Validate() error {
	if c.PostmarkServerToken == "" {
		return fmt.Errorf("%w: PostmarkServerToken is required", ErrInvalidConfig)
	}
	if c.PostmarkAccountToken == "" {
		return fmt.Errorf("%w: PostmarkAccountToken is required", ErrInvalidConfig)
	}
	for name, addr := range map[string]string{
		"SenderEmail":  c.SenderEmail,
		"SupportEmail": c.SupportEmail,
	} {
		if addr == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidConfig, name)
		}
		if !emailRegex.MatchString(addr) {
			return fmt.Errorf("%w: %s must be a valid email address", ErrInvalidConfig, name)
		}
	}
	return nil
}
