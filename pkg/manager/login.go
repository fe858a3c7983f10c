package manager

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/pbxkit/pbxkit-go/pkg/wire"
)

// Login authenticates the connection using the configured credentials.
// With Config.UseChallenge set, a Challenge/Login exchange is performed
// and the secret never crosses the wire in clear text.
func (c *Client) Login(ctx context.Context) error {
	fields := wire.Fields{}.Add("Username", c.config.Username)

	if c.config.UseChallenge {
		challenge, err := c.challenge(ctx)
		if err != nil {
			return err
		}
		sum := md5.Sum([]byte(challenge + c.config.Secret))
		fields = fields.
			Add("AuthType", "MD5").
			Add("Key", hex.EncodeToString(sum[:]))
	} else {
		fields = fields.Add("Secret", c.config.Secret)
	}

	fields = fields.AddOpt("Events", c.config.Events)

	reply, err := c.Send(ctx, "Login", fields)
	if err != nil {
		return err
	}
	if !reply.Success() {
		return fmt.Errorf("%w: %s", ErrLoginFailed, reply.Get("Message"))
	}

	c.loggedIn.Store(true)
	c.logger.Info("logged in", "username", c.config.Username)
	return nil
}

// challenge requests an MD5 authentication challenge.
func (c *Client) challenge(ctx context.Context) (string, error) {
	reply, err := c.Send(ctx, "Challenge", wire.Fields{}.Add("AuthType", "MD5"))
	if err != nil {
		return "", err
	}
	challenge := reply.Get("Challenge")
	if !reply.Success() || challenge == "" {
		return "", fmt.Errorf("%w: no challenge issued: %s", ErrLoginFailed, reply.Get("Message"))
	}
	return challenge, nil
}

// Logoff ends the authenticated session without closing the socket.
// Close calls this automatically when a login succeeded.
func (c *Client) Logoff(ctx context.Context) error {
	_, err := c.Send(ctx, "Logoff", nil)
	if err != nil {
		return err
	}
	c.loggedIn.Store(false)
	return nil
}

// LoggedIn reports whether a login has succeeded on this connection.
func (c *Client) LoggedIn() bool {
	return c.loggedIn.Load()
}
