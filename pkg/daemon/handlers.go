package daemon

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/skybright/solarcollect/pkg/config"
	"github.com/skybright/solarcollect/pkg/types"
	"github.com/skybright/solarcollect/pkg/version"
)

func getStatus(c *gin.Context) {
	pct, err := est.PercentCharged()
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	remaining, err := est.RemainingCapacity()
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	c.IndentedJSON(http.StatusOK, types.Status{
		PercentCharged:      pct,
		RemainingCapacityAh: remaining,
		CapacityAh:          est.Capacity(),
		Daytime:             coll.Daytime(),
		QueuedUploads:       pipe.QueueDepth(),
		Version:             version.Version,
	})
}

func getBattery(c *gin.Context) {
	st, err := est.State()
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, st)
}

func setBatteryCapacity(c *gin.Context) {
	var ah float64
	if err := c.BindJSON(&ah); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if ah < 0 {
		err := fmt.Errorf("remaining capacity must be non-negative, got %.2f", ah)
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if err := est.SetRemainingCapacity(ah); err != nil {
		logrus.Errorf("SetRemainingCapacity failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set remaining capacity to %.2f Ah (clamped to [0, %.2f])", ah, est.Capacity()))
}

func getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(conf)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, gin.H{
		"version":   version.Version,
		"gitCommit": version.GitCommit,
	})
}
