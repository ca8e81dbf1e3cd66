package mailer

import (
	"fmt"
	"html"
)

const baseTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Daniry Admin</title></head>
<body style="font-family:'Segoe UI',Tahoma,sans-serif;background:#f9f9f9;margin:0;padding:0;">
  <div style="max-width:600px;margin:20px auto;background:#ffffff;border-radius:8px;overflow:hidden;">
    <div style="background:#40308a;color:#ffffff;padding:30px;text-align:center;">
      <h1 style="margin:0;font-size:30px;">Daniry</h1>
    </div>
    <div style="padding:30px;">%s</div>
    <div style="background:#f1f1f1;color:#777;padding:20px;text-align:center;font-size:12px;">
      This is an automated message, please do not reply.
    </div>
  </div>
</body>
</html>`

// PasswordResetHTML renders the reset email pointing at the frontend
// reset page. The link expires in 15 minutes.
func PasswordResetHTML(resetURL string) string {
	content := fmt.Sprintf(`
    <h2>Password Reset Request</h2>
    <p>We received a request to reset your admin password. Click the button below to choose a new one.</p>
    <p style="text-align:center;">
      <a href="%s" style="background:#40308a;color:#ffffff;padding:12px 24px;border-radius:4px;text-decoration:none;">Reset Password</a>
    </p>
    <p>This link expires in 15 minutes. If you did not request a reset, you can ignore this email.</p>`,
		html.EscapeString(resetURL))
	return fmt.Sprintf(baseTemplate, content)
}

// InvitationHTML renders the invitation email. tempPassword is shown
// only when the temporary-password step is enabled.
func InvitationHTML(name, setupURL, tempPassword string) string {
	tempBlock := ""
	if tempPassword != "" {
		tempBlock = fmt.Sprintf(`
    <p>Your temporary password:</p>
    <p style="text-align:center;font-size:20px;letter-spacing:2px;"><code>%s</code></p>`,
			html.EscapeString(tempPassword))
	}
	content := fmt.Sprintf(`
    <h2>Welcome, %s</h2>
    <p>You have been invited to the Daniry admin panel. Use the button below to set your password and activate your account.</p>
    <p style="text-align:center;">
      <a href="%s" style="background:#40308a;color:#ffffff;padding:12px 24px;border-radius:4px;text-decoration:none;">Set Your Password</a>
    </p>%s
    <p>The invitation expires in 7 days.</p>`,
		html.EscapeString(name), html.EscapeString(setupURL), tempBlock)
	return fmt.Sprintf(baseTemplate, content)
}

// SecurityOTPHTML renders the password-change OTP email.
func SecurityOTPHTML(code string) string {
	content := fmt.Sprintf(`
    <h2>Security Verification</h2>
    <p>Use the code below to confirm your password change:</p>
    <p style="text-align:center;font-size:28px;letter-spacing:6px;"><strong>%s</strong></p>
    <p>The code expires in 10 minutes. If you did not request this, change your password immediately.</p>`,
		html.EscapeString(code))
	return fmt.Sprintf(baseTemplate, content)
}
