package client

import (
	"encoding/json"
	"strconv"

	pkgerrors "github.com/pkg/errors"

	"github.com/skybright/solarcollect/pkg/battery"
	"github.com/skybright/solarcollect/pkg/config"
	"github.com/skybright/solarcollect/pkg/types"
)

func (c *Client) GetStatus() (*types.Status, error) {
	ret, err := c.Get("/status")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get daemon status")
	}

	st := &types.Status{}
	if err := json.Unmarshal([]byte(ret), st); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal status")
	}
	return st, nil
}

func (c *Client) GetBatteryState() (*battery.State, error) {
	ret, err := c.Get("/battery")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get battery state")
	}

	st := &battery.State{}
	if err := json.Unmarshal([]byte(ret), st); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal battery state")
	}
	return st, nil
}

func (c *Client) SetRemainingCapacity(ah float64) (string, error) {
	return c.Put("/battery/capacity", strconv.FormatFloat(ah, 'f', -1, 64))
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}

	conf := &config.RawFileConfig{}
	if err := json.Unmarshal([]byte(ret), conf); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}
	return conf, nil
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get daemon version")
	}
	return ret, nil
}
