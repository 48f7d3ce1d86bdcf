// internal/handler/hub_handler.go
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sensaur-hub/internal/hub"
	"sensaur-hub/internal/repository"
	"sensaur-hub/internal/service"
	"sensaur-hub/internal/utils"
)

// HubHandler serves the hub state and accepts hub commands over HTTP
type HubHandler struct {
	hubService *service.HubService
	readings   repository.ReadingRepository
	logger     *utils.ServiceLogger
}

// NewHubHandler creates a new hub handler. readings may be nil when
// persistence is disabled.
func NewHubHandler(hubService *service.HubService, readings repository.ReadingRepository, logger *zap.Logger) *HubHandler {
	return &HubHandler{
		hubService: hubService,
		readings:   readings,
		logger:     utils.NewServiceLogger(logger, "hub-handler"),
	}
}

// RegisterRoutes registers hub routes
func (h *HubHandler) RegisterRoutes(router *gin.RouterGroup) {
	hubRoutes := router.Group("/hub")
	{
		hubRoutes.GET("/status", h.GetStatus)
		hubRoutes.GET("/devices", h.GetDeviceInfos)
		hubRoutes.GET("/sensors", h.GetSensorValues)
		hubRoutes.GET("/connections", h.ListConnections)
		hubRoutes.POST("/config", h.ApplyConfig)
		hubRoutes.POST("/actuators", h.SetActuators)
	}

	devices := router.Group("/devices")
	{
		devices.GET("", h.ListDevices)
		devices.GET("/:device_id", h.GetDevice)
		devices.GET("/:device_id/components/:index", h.GetComponent)
	}

	router.GET("/components/:component_id/readings", h.ListReadings)
}

// GetStatus returns the hub status message
// @Summary Hub status
// @Description Get the hub identity, polling interval and device counts
// @Tags Hub
// @Produce json
// @Success 200 {object} utils.APIResponse{data=hub.Status}
// @Router /hub/status [get]
func (h *HubHandler) GetStatus(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Hub status retrieved", h.hubService.Hub().Status())
}

// GetDeviceInfos returns the devices message
// @Summary Device info map
// @Description Get the published device info records keyed by device id
// @Tags Hub
// @Produce json
// @Success 200 {object} utils.APIResponse{data=map[string]hub.DeviceInfo}
// @Router /hub/devices [get]
func (h *HubHandler) GetDeviceInfos(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Device infos retrieved", h.hubService.Hub().DeviceInfos())
}

// GetSensorValues returns the last sensor values
// @Summary Sensor values
// @Description Get the last value of every input component keyed by component id
// @Tags Hub
// @Produce json
// @Success 200 {object} utils.APIResponse{data=map[string]string}
// @Router /hub/sensors [get]
func (h *HubHandler) GetSensorValues(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Sensor values retrieved", h.hubService.Hub().SensorValues())
}

// ListConnections returns the device connections of the hub
// @Summary List connections
// @Tags Hub
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]service.ConnectionInfo}
// @Router /hub/connections [get]
func (h *HubHandler) ListConnections(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Connections retrieved", h.hubService.Connections())
}

// ApplyConfig updates the hub configuration
// @Summary Apply hub config
// @Description Set the polling interval (seconds) and/or firmware url. Absent fields are unchanged.
// @Tags Hub
// @Accept json
// @Produce json
// @Param request body hub.ConfigMessage true "Config message"
// @Success 200 {object} utils.APIResponse{data=hub.Status}
// @Failure 400 {object} utils.APIResponse "Invalid config"
// @Router /hub/config [post]
func (h *HubHandler) ApplyConfig(c *gin.Context) {
	var cfg hub.ConfigMessage
	if err := c.ShouldBindJSON(&cfg); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.hubService.ApplyConfig(c.Request.Context(), cfg); err != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(err, hub.ErrInvalidConfig) {
			statusCode = http.StatusBadRequest
		}
		utils.ErrorResponse(c, statusCode, "Failed to apply config", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Config applied", h.hubService.Hub().Status())
}

// SetActuators sends actuator values to devices
// @Summary Set actuators
// @Description Send values to output components, keyed by component id
// @Tags Hub
// @Accept json
// @Produce json
// @Param request body map[string]string true "Actuator values"
// @Success 200 {object} utils.APIResponse{data=[]hub.ActuatorTarget}
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 422 {object} utils.APIResponse "Unknown component or not an actuator"
// @Router /hub/actuators [post]
func (h *HubHandler) SetActuators(c *gin.Context) {
	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(values) == 0 {
		utils.ValidationErrorResponse(c, map[string]string{"body": "at least one actuator value is required"})
		return
	}

	sent, err := h.hubService.SetActuators(c.Request.Context(), values)
	if err != nil {
		h.logger.Warn("Actuator request failed", zap.Int("sent", len(sent)), zap.Error(err))
		statusCode := http.StatusBadGateway
		if errors.Is(err, hub.ErrComponentNotFound) || errors.Is(err, hub.ErrNotActuator) {
			statusCode = http.StatusUnprocessableEntity
		}
		utils.ErrorResponse(c, statusCode, "Failed to set actuators", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Actuators set", sent)
}

// ListDevices lists attached devices
// @Summary List devices
// @Description Get snapshots of all attached devices in attach order
// @Tags Devices
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]hub.DeviceSnapshot}
// @Router /devices [get]
func (h *HubHandler) ListDevices(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Devices retrieved", h.hubService.Hub().Devices())
}

// GetDevice returns one device
// @Summary Get device
// @Tags Devices
// @Produce json
// @Param device_id path string true "Device ID"
// @Success 200 {object} utils.APIResponse{data=hub.DeviceSnapshot}
// @Failure 404 {object} utils.APIResponse "Device not found"
// @Router /devices/{device_id} [get]
func (h *HubHandler) GetDevice(c *gin.Context) {
	device, err := h.hubService.Hub().Device(c.Param("device_id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Device not found", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Device retrieved", device)
}

// GetComponent returns the info record of one component slot
// @Summary Get component
// @Tags Devices
// @Produce json
// @Param device_id path string true "Device ID"
// @Param index path int true "Component index"
// @Success 200 {object} utils.APIResponse{data=hub.ComponentSnapshot}
// @Failure 400 {object} utils.APIResponse "Invalid index"
// @Failure 404 {object} utils.APIResponse "Device or component not found"
// @Router /devices/{device_id}/components/{index} [get]
func (h *HubHandler) GetComponent(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid component index", err)
		return
	}

	component, err := h.hubService.Hub().Component(c.Param("device_id"), index)
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Component not found", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Component retrieved", component)
}

// ListReadings returns stored readings of a component, newest first
// @Summary List readings
// @Tags Readings
// @Produce json
// @Param component_id path string true "Component ID"
// @Param limit query int false "Maximum readings" default(100)
// @Param since query string false "RFC3339 lower bound"
// @Success 200 {object} utils.APIResponse{data=[]repository.Reading}
// @Failure 400 {object} utils.APIResponse "Invalid query"
// @Failure 503 {object} utils.APIResponse "Persistence disabled"
// @Router /components/{component_id}/readings [get]
func (h *HubHandler) ListReadings(c *gin.Context) {
	if h.readings == nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Reading storage is disabled", nil)
		return
	}

	filter := &repository.ReadingFilter{ComponentID: c.Param("component_id")}
	errs := make(map[string]string)

	if limit := c.Query("limit"); limit != "" {
		l, err := strconv.Atoi(limit)
		if err != nil || l <= 0 {
			errs["limit"] = "must be a positive integer"
		}
		filter.Limit = l
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			errs["since"] = "must be an RFC3339 timestamp"
		}
		filter.Since = &t
	}
	if len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs)
		return
	}

	readings, err := h.readings.ListReadings(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list readings", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list readings", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Readings retrieved", gin.H{
		"component_id": filter.ComponentID,
		"count":        len(readings),
		"readings":     readings,
	})
}
