package handlers

import (
	"net/http"

	"aichat/internal/middleware"
)

type msgKey string

const (
	msgInvalidPayload      msgKey = "invalid payload"
	msgInvalidMultipart    msgKey = "invalid multipart payload"
	msgUserMessageRequired msgKey = "userMessage is required"
	msgChatUpstreamFailed  msgKey = "chat provider request failed"
	msgPromptRequired      msgKey = "prompt is required"
	msgSubmissionFailed    msgKey = "image generation could not be started"
	msgGenerationTimeout   msgKey = "image generation did not finish in time, please try again"
	msgMalformedResult     msgKey = "image generation finished but returned no image"
	msgGenerationFailed    msgKey = "image generation failed"
	msgGenerationAborted   msgKey = "image generation aborted"
	msgImageFileRequired   msgKey = "img file is required"
	msgImageFileUnreadable msgKey = "could not read img file"
	msgAnalysisFailed      msgKey = "image analysis request failed"
	msgHistoryLoadFailed   msgKey = "could not load history"
	msgHistorySaveFailed   msgKey = "could not save history"
	msgConversationMissing msgKey = "conversation not found"
	msgMessagesRequired    msgKey = "at least one non-empty message is required"
	msgTitleRequired       msgKey = "title is required"
)

// Localized user-facing detail strings. The key doubles as the English
// text; locales without a translation fall back to it.
var messages = map[msgKey]map[string]string{
	msgInvalidPayload: {
		"ru": "некорректный запрос",
		"zh": "请求格式不正确",
	},
	msgInvalidMultipart: {
		"ru": "некорректные данные формы",
		"zh": "表单数据不正确",
	},
	msgUserMessageRequired: {
		"ru": "необходимо поле userMessage",
		"zh": "缺少 userMessage 字段",
	},
	msgChatUpstreamFailed: {
		"ru": "не удалось получить ответ от чат-сервиса",
		"zh": "聊天服务请求失败",
	},
	msgPromptRequired: {
		"ru": "необходимо поле prompt",
		"zh": "缺少 prompt 字段",
	},
	msgSubmissionFailed: {
		"ru": "не удалось запустить генерацию изображения",
		"zh": "无法启动图像生成",
	},
	msgGenerationTimeout: {
		"ru": "генерация изображения не завершилась вовремя, попробуйте ещё раз",
		"zh": "图像生成超时，请重试",
	},
	msgMalformedResult: {
		"ru": "генерация завершилась, но изображение не получено",
		"zh": "图像生成已完成但未返回图片",
	},
	msgGenerationFailed: {
		"ru": "не удалось сгенерировать изображение",
		"zh": "图像生成失败",
	},
	msgGenerationAborted: {
		"ru": "генерация изображения прервана",
		"zh": "图像生成已中止",
	},
	msgImageFileRequired: {
		"ru": "необходимо приложить файл img",
		"zh": "缺少 img 文件",
	},
	msgImageFileUnreadable: {
		"ru": "не удалось прочитать файл img",
		"zh": "无法读取 img 文件",
	},
	msgAnalysisFailed: {
		"ru": "запрос к сервису анализа изображений не удался",
		"zh": "图像分析请求失败",
	},
	msgHistoryLoadFailed: {
		"ru": "не удалось загрузить историю",
		"zh": "无法加载历史记录",
	},
	msgHistorySaveFailed: {
		"ru": "не удалось сохранить историю",
		"zh": "无法保存历史记录",
	},
	msgConversationMissing: {
		"ru": "диалог не найден",
		"zh": "未找到对话",
	},
	msgMessagesRequired: {
		"ru": "нужно хотя бы одно непустое сообщение",
		"zh": "至少需要一条非空消息",
	},
	msgTitleRequired: {
		"ru": "необходимо поле title",
		"zh": "缺少 title 字段",
	},
}

// msg renders a detail string in the locale the i18n middleware resolved
// for this request.
func (a *App) msg(r *http.Request, key msgKey) string {
	locale := middleware.LocaleFromContext(r.Context())
	if translated, ok := messages[key][locale]; ok {
		return translated
	}
	return string(key)
}
