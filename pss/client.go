package pss

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/config"
	"github.com/google/go-querystring/query"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const checksumSalt = "savysoda"
const requestTimeout = 20 * time.Second

//Client talks to the Pixel Starships api
type Client struct {
	baseURL     string
	deviceKey   string
	deviceType  string
	checksumKey string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

//NewClient creates an api client. A device key is generated when none is configured.
func NewClient(cfg config.PSSConfig) *Client {
	deviceKey := cfg.DeviceKey
	if deviceKey == "" {
		deviceKey = strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		logrus.Infof("No pss device key configured, using generated key %v", deviceKey)
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.APIURL, "/"),
		deviceKey:   deviceKey,
		deviceType:  cfg.DeviceType,
		checksumKey: cfg.ChecksumKey,
		httpClient:  &http.Client{Timeout: requestTimeout},
		limiter:     rate.NewLimiter(limit, 1),
	}
}

type loginParams struct {
	DeviceKey      string `url:"deviceKey"`
	IsJailBroken   bool   `url:"isJailBroken"`
	Checksum       string `url:"checksum"`
	DeviceType     string `url:"deviceType"`
	LanguageKey    string `url:"languageKey"`
	AdvertisingKey string `url:"advertisingkey"`
}

type listMessagesParams struct {
	ChannelKey  string `url:"channelKey"`
	AccessToken string `url:"accessToken"`
}

//Checksum signs a device login
func Checksum(deviceKey, deviceType, checksumKey string) string {
	sum := md5.Sum([]byte(deviceKey + deviceType + checksumKey + checksumSalt))
	return hex.EncodeToString(sum[:])
}

//Login authenticates the device and returns an access token
func (c *Client) Login(ctx context.Context) (string, error) {
	params := loginParams{
		DeviceKey:    c.deviceKey,
		IsJailBroken: false,
		Checksum:     Checksum(c.deviceKey, c.deviceType, c.checksumKey),
		DeviceType:   c.deviceType,
		LanguageKey:  "en",
	}
	elements, err := c.call(ctx, http.MethodPost, "UserService/DeviceLogin8", params)
	if err != nil {
		return "", err
	}
	for _, el := range elements {
		if token := el.attrs["accessToken"]; token != "" {
			return token, nil
		}
	}
	return "", fmt.Errorf("%w: login response contained no access token", ErrAPI)
}

//ListMessages returns the recent messages of a chat channel in the order the api sent them
func (c *Client) ListMessages(ctx context.Context, channelKey, accessToken string) ([]Message, error) {
	params := listMessagesParams{ChannelKey: channelKey, AccessToken: accessToken}
	elements, err := c.call(ctx, http.MethodGet, "MessageService/ListMessagesForChannelKey", params)
	if err != nil {
		return nil, err
	}
	var res []Message
	for _, el := range elements {
		if el.name != "Message" {
			continue
		}
		msg, err := messageFromAttrs(el.attrs)
		if err != nil {
			logrus.Warnf("Skipping unreadable message in channel %v: %v", channelKey, err)
			continue
		}
		res = append(res, msg)
	}
	return res, nil
}

//element is one xml element with its attributes; the api carries all of its data in attributes
type element struct {
	name  string
	attrs map[string]string
}

func (c *Client) call(ctx context.Context, method, endpoint string, params interface{}) ([]element, error) {
	values, err := query.Values(params)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%v/%v?%v", c.baseURL, endpoint, values.Encode())
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v failed: %v", ErrAPI, endpoint, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %v response: %v", ErrAPI, endpoint, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: %v returned %v", ErrAPI, endpoint, resp.Status)
	}
	elements, err := parseElements(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v returned unreadable xml: %v", ErrAPI, endpoint, err)
	}
	for _, el := range elements {
		if msg := el.attrs["errorMessage"]; msg != "" {
			if strings.Contains(strings.ToLower(msg), "maintenance") {
				return nil, fmt.Errorf("%w: %v", ErrServerUnderMaintenance, msg)
			}
			return nil, fmt.Errorf("%w: %v: %v", ErrAPI, endpoint, msg)
		}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %v returned %v", ErrAPI, endpoint, resp.Status)
	}
	return elements, nil
}

func parseElements(body []byte) ([]element, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var res []element
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return res, nil
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		el := element{name: start.Name.Local, attrs: make(map[string]string, len(start.Attr))}
		for _, attr := range start.Attr {
			el.attrs[attr.Name.Local] = attr.Value
		}
		res = append(res, el)
	}
}
