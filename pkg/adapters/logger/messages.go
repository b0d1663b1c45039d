package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Session lifecycle
		"Recording %s at %s (session %s)":                       "%s を %s で録画中 (セッション %s)",
		"Failed to start recording: %v":                         "録画を開始できませんでした: %v",
		"Graphics adapter %s (%s), surface %v":                  "グラフィックスアダプター %s (%s)、サーフェス %v",
		"Texture cache enabled":                                 "テクスチャキャッシュを有効化しました",
		"Finishing recording":                                   "録画を終了しています",
		"Cancelling recording":                                  "録画をキャンセルしています",
		"Recording completed: %s (%d frames, %d audio buffers)": "録画が完了しました: %s (%d フレーム, %d オーディオバッファ)",
		"Recording cancelled":                                   "録画をキャンセルしました",
		"Recording failed: %v":                                  "録画に失敗しました: %v",

		// Writer
		"Frame %d appended at %v":                          "フレーム %d を %v に追加しました",
		"Failed to remove partial output: %v":              "書き込み途中のファイルを削除できませんでした: %v",
		"Failed to release texture cache: %v":              "テクスチャキャッシュを解放できませんでした: %v",
		"Published %s":                                     "%s を公開しました",
		"Writing fragment %d (%d video, %d audio samples)": "フラグメント %d を書き込み中 (映像 %d, 音声 %d サンプル)",

		// Encoders
		"Using H.264 encoder (ffmpeg at %s)":      "H.264 エンコーダーを使用します (ffmpeg: %s)",
		"ffmpeg not found, falling back to MJPEG": "ffmpeg が見つからないため MJPEG にフォールバックします",
		"Started ffmpeg: %s":                      "ffmpeg を起動しました: %s",

		// Library
		"Failed to save %s to library: %v": "%s をライブラリに保存できませんでした: %v",
		"Saved %s to library":              "%s をライブラリに保存しました",
		"Copied %s to %s":                  "%s を %s にコピーしました",

		// CLI
		"Interrupted, cancelling recording...": "中断されました。録画をキャンセル中...",
		"Output saved to %s":                   "出力を %s に保存しました",
		"Dropped %d frames (%d recorded)":      "%d フレームを破棄しました (%d フレーム記録)",
		"Rendering %d frames at %d fps":        "%d フレームを %d fps でレンダリング中",
		"Loaded config from %s":                "%s から設定を読み込みました",
	})
}
