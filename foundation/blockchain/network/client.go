package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avisen/ledger/foundation/blockchain/database"
	"github.com/avisen/ledger/foundation/blockchain/peer"
)

// NetworkIDHeader carries the identifier of the network a request belongs to.
const NetworkIDHeader = "X-Network-ID"

// RemoteNodeClient represents the set of calls one node makes to another.
type RemoteNodeClient interface {
	BroadcastPeer(ctx context.Context, address string, node peer.Node) error
	BroadcastBlock(ctx context.Context, address string, block database.Block) error
	LatestBlock(ctx context.Context, address string) (database.Block, bool, error)
	DownloadPeers(ctx context.Context, address string) ([]peer.Node, error)
	DownloadPeerInfo(ctx context.Context, address string) (peer.Info, error)
	DownloadBlocks(ctx context.Context, address string, page int, fromHeight *uint64) ([]database.Block, error)
	UpdatePeer(ctx context.Context, address string, node peer.Node) error
}

// StatusError is returned when a node answers with an unexpected status.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

// Error implements the error interface.
func (se *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", se.URL, se.Status, strings.TrimSpace(se.Body))
}

// =============================================================================

// Client implements RemoteNodeClient over HTTP.
type Client struct {
	networkID string
	timeout   time.Duration
	http      *http.Client
}

// NewClient constructs a client that tags every request with the network id
// and bounds every call by the timeout.
func NewClient(networkID string, timeout time.Duration) *Client {
	return &Client{
		networkID: networkID,
		timeout:   timeout,
		http:      &http.Client{},
	}
}

// BroadcastPeer asks the node at address to add the node and pass it on.
func (c *Client) BroadcastPeer(ctx context.Context, address string, node peer.Node) error {
	url := fmt.Sprintf("%s/network/node?broadcast=true", address)
	return c.send(ctx, http.MethodPost, url, node, nil)
}

// BroadcastBlock hands a newly minted block to the node at address.
func (c *Client) BroadcastBlock(ctx context.Context, address string, block database.Block) error {
	url := fmt.Sprintf("%s/blockchain/block", address)
	return c.send(ctx, http.MethodPost, url, block, nil, http.StatusCreated)
}

// LatestBlock returns the tip of the node at address. The boolean is false
// when that node has an empty chain.
func (c *Client) LatestBlock(ctx context.Context, address string) (database.Block, bool, error) {
	url := fmt.Sprintf("%s/blockchain?page=0&size=1&sort=DESC", address)

	var blocks []database.Block
	if err := c.send(ctx, http.MethodGet, url, nil, &blocks); err != nil {
		return database.Block{}, false, err
	}

	if len(blocks) == 0 {
		return database.Block{}, false, nil
	}

	return blocks[0], true, nil
}

// DownloadPeers returns the roster of the node at address.
func (c *Client) DownloadPeers(ctx context.Context, address string) ([]peer.Node, error) {
	url := fmt.Sprintf("%s/network", address)

	var peers []peer.Node
	if err := c.send(ctx, http.MethodGet, url, nil, &peers); err != nil {
		return nil, err
	}

	return peers, nil
}

// DownloadPeerInfo returns the self description of the node at address.
func (c *Client) DownloadPeerInfo(ctx context.Context, address string) (peer.Info, error) {
	url := fmt.Sprintf("%s/status", address)

	var info peer.Info
	if err := c.send(ctx, http.MethodGet, url, nil, &info); err != nil {
		return peer.Info{}, err
	}

	return info, nil
}

// DownloadBlocks returns a page of blocks from the node at address. When
// fromHeight is set only blocks above that height are returned.
func (c *Client) DownloadBlocks(ctx context.Context, address string, page int, fromHeight *uint64) ([]database.Block, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(database.PageSize))
	if fromHeight != nil {
		q.Set("fromHeight", strconv.FormatUint(*fromHeight, 10))
	}

	endpoint := fmt.Sprintf("%s/blockchain?%s", address, q.Encode())

	var blocks []database.Block
	if err := c.send(ctx, http.MethodGet, endpoint, nil, &blocks); err != nil {
		return nil, err
	}

	return blocks, nil
}

// UpdatePeer registers node with the node at address so its peers learn
// about it.
func (c *Client) UpdatePeer(ctx context.Context, address string, node peer.Node) error {
	url := fmt.Sprintf("%s/network/node?broadcast=true", address)
	return c.send(ctx, http.MethodPost, url, node, nil, http.StatusCreated)
}

// =============================================================================

// send is a helper function to send an HTTP request to a node. Any status
// other than the expected ones is returned as a StatusError. With no
// expected status any 2xx is accepted.
func (c *Client) send(ctx context.Context, method string, url string, dataSend any, dataRecv any, expStatus ...int) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if dataSend != nil {
		data, err := json.Marshal(dataSend)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(NetworkIDHeader, c.networkID)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !expected(resp.StatusCode, expStatus) {
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return &StatusError{URL: url, Status: resp.StatusCode, Body: string(msg)}
	}

	if dataRecv != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(dataRecv); err != nil {
			return fmt.Errorf("%s: decoding response: %w", url, err)
		}
	}

	return nil
}

func expected(status int, expStatus []int) bool {
	if len(expStatus) == 0 {
		return status >= 200 && status < 300
	}

	for _, s := range expStatus {
		if status == s {
			return true
		}
	}
	return false
}
